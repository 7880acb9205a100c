package docker

import (
	"strconv"

	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Run Types
// =============================================================================

// RunSpec describes a docker run invocation.
type RunSpec struct {
	Detach  bool     // -d; Run returns the container ID
	TTY     bool     // -t
	Publish []string // -p values, e.g. ":8000" for a daemon-assigned host port
	Env     []string // NAME=VALUE pairs passed with -e
	Image   string
	Command []string
}

// ServicePort returns the TCP port key of a container port, as used in
// docker inspect port maps.
//
// Example:
//
//	ServicePort(8000) // returns "8000/tcp"
func ServicePort(port int) (nat.Port, error) {
	return nat.NewPort("tcp", strconv.Itoa(port))
}
