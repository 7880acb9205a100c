// Package hosts resolves the layered per-host settings document into
// validated host profiles.
//
// The document is a JSON (or YAML) object keyed by host alias. The reserved
// alias "_" is the default layer: its entries are merged under every other
// alias and it is never a deployment target itself.
//
//	{
//	    "_": {
//	        "host_string": "example.com",
//	        "path": "~/sites/project-env/project",
//	        "repo_url": "git@github.com:org/project.git"
//	    },
//	    "production": {},
//	    "development": {"path": "~/sites/project-dev-env/project"}
//	}
//
// All functions in this package are pure. Reading the document from disk
// happens in internal/shell/hostsfile.
package hosts
