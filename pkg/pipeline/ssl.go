package pipeline

import (
	"fmt"
	"path"
)

const backendHost = "127.0.0.1"

// studSteps installs and (re)starts the stud TLS terminator in front of
// 127.0.0.1:<port>.
func studSteps(pemPath string, port int) []Step {
	return []Step{
		RunScript{
			Label:  "Installing Stud",
			Script: script("install-stud.sh"),
		},
		CopyFile{
			Label: "Configuring Stud for Upstart",
			Src:   template("stud.init.conf"),
			Dest:  UnitPath("stud"),
		},
		CopyFile{
			Label: "Configuring SSL",
			Src:   pemPath,
			Dest:  path.Join(StudRoot, "ssl.pem"),
		},
		CopyFile{
			Label: "Configuring Stud",
			Src:   template("stud.conf"),
			Dest:  path.Join(StudRoot, "stud.conf"),
			Vars:  Vars{"backend": studBackend(port)},
		},
		RunCommand{
			Label:   "Starting Stud",
			Command: "(sudo stop stud || :) && (sudo start stud || :)",
		},
	}
}

func studBackend(port int) string {
	return fmt.Sprintf("[%s]:%d", backendHost, port)
}
