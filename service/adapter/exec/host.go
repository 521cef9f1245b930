package exec

import (
	"context"
	"strings"

	"github.com/viant/afs/url"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"
)

// Host identifies where commands run.  A localhost URL executes locally,
// anything else opens an SSH session using credentials resolved through the
// secret service.
type Host struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// IsLocal reports whether the host resolves to the local machine.
func (h *Host) IsLocal() bool {
	return h.URL == "" || url.Host(h.URL) == "localhost"
}

// Address returns the host:port SSH endpoint, defaulting the port to 22.
func (h *Host) Address() string {
	address := url.Host(h.URL)
	if !strings.Contains(address, ":") {
		address += ":22"
	}
	return address
}

// SSHConfig resolves the host's SSH client configuration from its secrets.
func (h *Host) SSHConfig(ctx context.Context) (*ssh.ClientConfig, error) {
	credentials := h.Credentials
	if credentials == "" {
		credentials = "localhost"
	}
	secrets := secret.New()
	generic, err := secrets.GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}
