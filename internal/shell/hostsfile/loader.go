// Package hostsfile loads the host settings document from the local disk.
package hostsfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/artpar/ehbdeploy/internal/core/hosts"
)

// DefaultPath is the settings file looked up in the working directory.
const DefaultPath = ".fabhosts"

// Usage describes the settings file. It is shown when the file is missing.
const Usage = `Before deploying, create a .fabhosts file in your project directory.
It is a JSON document with the following structure:

    {
        "_": {
            "host_string": "example.com",
            "path": "~/sites/project-env/project",
            "repo_url": "git@github.com:org/project.git",
            "etcd_host": "etcd.example.com",
            "docker_registry": "registry.example.com:5000"
        },
        "production": {},
        "development": {
            "path": "~/sites/project-dev-env/project"
        },
        "staging": {
            "path": "~/sites/project-stage-env/project"
        }
    }

The "_" entry is the default for every other host, so only host-specific
settings need to be repeated. A .yaml or .yml file with the same shape is
accepted too.

Required settings:

* host_string - [user@]hostname[:port] of the host server

Settings read by the deployment steps:

* path            - checkout path *within* its virtual environment
* repo_url        - URL of the project git repository
* git_branch      - branch to deploy (usually given with --set)
* docker_registry - registry images are pushed to and pulled from
* etcd_host       - configuration store holding the service environment
`

// Loader reads the settings document from Path on every call.
type Loader struct {
	Path string
}

// New creates a loader for path, defaulting to DefaultPath.
func New(path string) *Loader {
	if path == "" {
		path = DefaultPath
	}
	return &Loader{Path: path}
}

// Check verifies that the settings file exists.
func (l *Loader) Check() error {
	info, err := os.Stat(l.Path)
	if err != nil {
		return l.statError(err)
	}
	if info.IsDir() {
		return hosts.NewConfigurationError("", "",
			fmt.Sprintf("host settings path %s is a directory", l.Path), hosts.ErrInvalidDocument)
	}
	return nil
}

// Load reads and parses the settings file.
func (l *Loader) Load() (hosts.Document, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, l.statError(err)
	}
	doc, err := hosts.Parse(data, hosts.FormatFromPath(l.Path))
	if err != nil {
		var cfgErr *hosts.ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Message = l.Path + ": " + cfgErr.Message
		}
		return nil, err
	}
	return doc, nil
}

func (l *Loader) statError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return hosts.NewConfigurationError("", "",
			fmt.Sprintf("host settings file %s not found", l.Path), hosts.ErrSettingsFileNotFound)
	}
	return hosts.NewConfigurationError("", "",
		fmt.Sprintf("read host settings file %s: %v", l.Path, err), err)
}
