package pipeline

import "github.com/systemstart/mup/pkg/api"

// Setup provisions a fresh host. Runtime installs come first, the
// environment next, then optional MongoDB and stud, and the app's upstart job
// always last since it references everything before it.
func Setup(cfg *api.Config) *Pipeline {
	var steps []Step

	if cfg.SetupNode {
		steps = append(steps, RunScript{
			Label:  "Installing Node.js",
			Script: script("install-node.sh"),
			Vars:   Vars{"nodeVersion": cfg.NodeVersion},
		})
	}

	if cfg.SetupPhantom {
		steps = append(steps, RunScript{
			Label:  "Installing PhantomJS",
			Script: script("install-phantomjs.sh"),
		})
	}

	steps = append(steps, RunScript{
		Label:  "Setting up Environment",
		Script: script("setup-env.sh"),
		Vars:   Vars{"appName": cfg.AppName},
	})

	if cfg.SetupMongo {
		steps = append(steps,
			CopyFile{
				Label: "Copying MongoDB configuration",
				Src:   template("mongodb.conf"),
				Dest:  MongoConfPath,
			},
			RunScript{
				Label:  "Installing MongoDB",
				Script: script("install-mongodb.sh"),
			},
		)
	}

	if cfg.SSL != nil {
		steps = append(steps, studSteps(cfg.SSL.Pem, cfg.SSL.BackendPort)...)
	}

	steps = append(steps, CopyFile{
		Label: "Configuring upstart",
		Src:   template("meteor.conf"),
		Dest:  UnitPath(cfg.AppName),
		Vars:  Vars{"appName": cfg.AppName},
	})

	return newPipeline("Setup (linux)", steps...)
}
