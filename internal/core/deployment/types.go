package deployment

import (
	"errors"
	"path"
	"strings"
)

var (
	ErrInvalidRevision = errors.New("invalid git revision")
	ErrInvalidPath     = errors.New("invalid checkout path")
)

// =============================================================================
// Artifact
// =============================================================================

// Artifact identifies one built image of a service branch. Local tags are
// ephemeral; the registry copy is the durable one.
type Artifact struct {
	Service  string
	Branch   string
	Revision string // short revision
}

// LocalTag returns the revision-addressed local tag of the artifact.
func (a Artifact) LocalTag() string {
	return LocalTag(a.Service, a.Branch, a.Revision)
}

// RegistryImage returns the registry repository the artifact is pushed to.
func (a Artifact) RegistryImage(registry string) string {
	return RegistryImage(registry, a.Service, a.Branch)
}

// =============================================================================
// Checkout Layout
// =============================================================================

// CheckoutLayout splits the configured checkout path into the environment
// directory and the project directory inside it.
type CheckoutLayout struct {
	Path    string // full checkout path, e.g. ~/sites/project-env/project
	Parent  string // environment directory, e.g. ~/sites/project-env
	Project string // project directory name, e.g. project
}

// SplitCheckout splits a remote (POSIX) checkout path into its layout.
// A trailing slash is ignored.
//
// Example:
//
//	SplitCheckout("~/sites/project-env/project")
//	// returns {Path: "~/sites/project-env/project", Parent: "~/sites/project-env", Project: "project"}
func SplitCheckout(p string) (CheckoutLayout, error) {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return CheckoutLayout{}, ErrInvalidPath
	}
	parent, project := path.Split(trimmed)
	if parent == "" || project == "" {
		return CheckoutLayout{}, ErrInvalidPath
	}
	if parent != "/" {
		parent = strings.TrimRight(parent, "/")
	}
	return CheckoutLayout{Path: trimmed, Parent: parent, Project: project}, nil
}
