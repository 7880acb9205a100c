package remote

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultSSHPort is used when neither the host string nor the config names one.
const DefaultSSHPort = 22

var ErrInvalidHostString = errors.New("invalid host string")

// Target is a parsed [user@]host[:port] connection address.
type Target struct {
	User string
	Host string
	Port int
}

// Address returns host:port for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	if t.User == "" {
		return t.Address()
	}
	return t.User + "@" + t.Address()
}

// ParseHostString parses a [user@]host[:port] connection address.
// Missing parts are filled from defaultUser and defaultPort.
//
// Examples:
//
//	ParseHostString("example.com", "deploy", 22)         // deploy@example.com:22
//	ParseHostString("root@example.com:2222", "deploy", 22) // root@example.com:2222
//	ParseHostString("[::1]:2200", "", 22)                // [::1]:2200
func ParseHostString(s, defaultUser string, defaultPort int) (Target, error) {
	if defaultPort == 0 {
		defaultPort = DefaultSSHPort
	}
	t := Target{User: defaultUser, Port: defaultPort}

	rest := strings.TrimSpace(s)
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		t.User = rest[:i]
		rest = rest[i+1:]
	}

	switch {
	case strings.HasPrefix(rest, "[") && !strings.Contains(rest, "]:"):
		t.Host = strings.Trim(rest, "[]")
	case strings.HasPrefix(rest, "["), strings.Count(rest, ":") == 1:
		host, port, err := net.SplitHostPort(rest)
		if err != nil {
			return Target{}, fmt.Errorf("%w %q: %v", ErrInvalidHostString, s, err)
		}
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return Target{}, fmt.Errorf("%w %q: bad port %q", ErrInvalidHostString, s, port)
		}
		t.Host, t.Port = host, n
	default:
		// plain host name, or a bare IPv6 address without port
		t.Host = rest
	}

	if t.Host == "" {
		return Target{}, fmt.Errorf("%w %q: missing host", ErrInvalidHostString, s)
	}
	return t, nil
}
