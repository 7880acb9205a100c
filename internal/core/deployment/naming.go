package deployment

import (
	"fmt"
	"net"
	"strings"
)

// ShortRevisionLength is the number of hash characters used in image tags.
const ShortRevisionLength = 7

// LatestTag is the tag pulled and run from the registry.
const LatestTag = "latest"

// =============================================================================
// Resource Naming Functions
// =============================================================================

// ImageName generates the repository name of a service branch.
// Pattern: {service}-{branch}
//
// Example:
//
//	ImageName("ehb-service", "main") // returns "ehb-service-main"
func ImageName(service, branch string) string {
	return fmt.Sprintf("%s-%s", service, branch)
}

// LocalTag generates the revision-addressed local image tag.
// Pattern: {service}-{branch}:{revision}
//
// Example:
//
//	LocalTag("ehb-service", "main", "abcdef1") // returns "ehb-service-main:abcdef1"
func LocalTag(service, branch, revision string) string {
	return fmt.Sprintf("%s:%s", ImageName(service, branch), revision)
}

// RegistryImage generates the registry repository of a service branch.
// Pattern: {registry}/{service}-{branch}
//
// Example:
//
//	RegistryImage("registry.local:5000", "ehb-service", "main") // returns "registry.local:5000/ehb-service-main"
func RegistryImage(registry, service, branch string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(registry, "/"), ImageName(service, branch))
}

// LatestImage generates the registry reference that is run on a host.
// Pattern: {registry}/{service}-{branch}:latest
func LatestImage(registry, service, branch string) string {
	return fmt.Sprintf("%s:%s", RegistryImage(registry, service, branch), LatestTag)
}

// ServiceURL generates the address a started container is reachable at.
//
// Example:
//
//	ServiceURL("example.com", "49153") // returns "http://example.com:49153"
func ServiceURL(host, port string) string {
	return "http://" + net.JoinHostPort(host, port)
}

// =============================================================================
// Revisions
// =============================================================================

// ShortRevision returns the first ShortRevisionLength characters of a full
// commit hash, as printed by git rev-parse HEAD.
//
// Surrounding whitespace is ignored. The hash must be hexadecimal and at
// least ShortRevisionLength characters long.
//
// Example:
//
//	ShortRevision("abcdef1234567890\n") // returns "abcdef1", nil
func ShortRevision(hash string) (string, error) {
	h := strings.TrimSpace(hash)
	if len(h) < ShortRevisionLength {
		return "", fmt.Errorf("%w: %q is shorter than %d characters", ErrInvalidRevision, h, ShortRevisionLength)
	}
	for _, r := range h {
		if !isHex(r) {
			return "", fmt.Errorf("%w: %q is not a hexadecimal commit hash", ErrInvalidRevision, h)
		}
	}
	return h[:ShortRevisionLength], nil
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
