package pipeline

import (
	"sync/atomic"

	"github.com/systemstart/mup/pkg/api"
)

func labels(p *Pipeline) []string {
	out := make([]string, 0, p.Len())
	for _, s := range p.Steps() {
		out = append(out, s.Name())
	}
	return out
}

func fullConfig() *api.Config {
	return &api.Config{
		AppName:      "myapp",
		App:          "/home/dev/myapp",
		Servers:      []api.Server{{Host: "example.com", Username: "root", Pem: "/keys/id_rsa"}},
		Env:          map[string]string{"PORT": "80"},
		SetupNode:    true,
		NodeVersion:  "0.10.36",
		SetupPhantom: true,
		SetupMongo:   true,
		SSL:          &api.SSLConfig{Pem: "/certs/ssl.pem", BackendPort: 8080},
	}
}

// fakeHandle counts terminations.
type fakeHandle struct {
	terminated atomic.Int32
}

func (h *fakeHandle) Terminate() error {
	h.terminated.Add(1)
	return nil
}
