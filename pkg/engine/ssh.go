package engine

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/systemstart/mup/pkg/api"
)

// CheckSSHPass reports whether sshpass, needed for password logins, is
// installed.
func CheckSSHPass() bool {
	_, err := exec.LookPath("sshpass")
	return err == nil
}

// sshCommand runs remote on server through the system ssh client.
func sshCommand(server api.Server, remote string) Command {
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-p", strconv.Itoa(server.SSHPort()),
	}
	if server.Pem != "" {
		args = append(args, "-i", server.Pem, "-o", "BatchMode=yes")
	}
	args = append(args, server.Address(), remote)

	if server.Pem == "" && server.Password != "" {
		return Command{
			Name: "sshpass",
			Args: append([]string{"-e", "ssh"}, args...),
			Env:  []string{"SSHPASS=" + server.Password},
		}
	}
	return Command{Name: "ssh", Args: args}
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
