package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolBuildCommand(t *testing.T) {
	cases := []struct {
		name string
		cmd  string
		host string
		want string
	}{
		{"ip placeholder", "nmap -sV <ip>", "10.0.0.8", "nmap -sV 10.0.0.8"},
		{"upper placeholder", "nmap -sV <IP> -oN out.txt", "10.0.0.8", "nmap -sV 10.0.0.8 -oN out.txt"},
		{"domain placeholder", "curl -I https://<domain>/", "example.com", "curl -I https://example.com/"},
		{"repeated placeholder", "sslyze <ip> --mozilla_config=<ip>", "10.0.0.8", "sslyze 10.0.0.8 --mozilla_config=10.0.0.8"},
		{"no placeholder appends host", "nikto -h", "example.com", "nikto -h example.com"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tool := &Tool{Cmd: c.cmd}
			assert.Equal(t, c.want, tool.BuildCommand(c.host))
		})
	}
}
