package hosts

// DefaultAlias is the reserved alias holding fallback settings.
const DefaultAlias = "_"

// Well-known setting keys.
const (
	KeyHostString     = "host_string"
	KeyPath           = "path"
	KeyRepoURL        = "repo_url"
	KeyGitBranch      = "git_branch"
	KeyDockerRegistry = "docker_registry"
	KeyEtcdHost       = "etcd_host"
)

// RequiredSettings must be non-empty in the profile of every requested host.
var RequiredSettings = []string{KeyHostString}

// Settings is a flat setting-name to value mapping.
type Settings map[string]string

// Document is the parsed host settings document, keyed by host alias.
type Document map[string]Settings

// Profile is the fully merged settings for one host alias.
type Profile map[string]string

// Get returns the value of key, or "" when the key is not set.
func (p Profile) Get(key string) string {
	return p[key]
}

// HostString returns the connection address of the profile.
func (p Profile) HostString() string {
	return p[KeyHostString]
}

// Clone returns a copy of the profile.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// baseSettings is the built-in lowest layer of every profile.
func baseSettings() Settings {
	return Settings{
		KeyHostString: "",
	}
}
