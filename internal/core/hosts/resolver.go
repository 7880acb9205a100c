package hosts

import "fmt"

// =============================================================================
// Resolution
// =============================================================================

// Merge builds the profile of every target alias in doc.
//
// Each profile is the built-in baseline, overridden by the default layer,
// overridden by the alias's own entries. The default alias itself is not
// part of the result. doc is not modified.
func Merge(doc Document) map[string]Profile {
	defaults := doc[DefaultAlias]

	profiles := make(map[string]Profile, len(doc))
	for alias, own := range doc {
		if alias == DefaultAlias {
			continue
		}
		p := Profile(baseSettings())
		for k, v := range defaults {
			p[k] = v
		}
		for k, v := range own {
			p[k] = v
		}
		profiles[alias] = p
	}
	return profiles
}

// Resolve merges doc and validates the requested host aliases.
//
// Only requested aliases are validated; other aliases are merged and returned
// as-is even when they lack required settings.
func Resolve(doc Document, requested []string) (map[string]Profile, error) {
	profiles := Merge(doc)

	if len(requested) == 0 {
		return nil, NewConfigurationError("", "", "at least one host must be specified", ErrNoHosts)
	}

	for _, target := range requested {
		p, ok := profiles[target]
		if !ok {
			return nil, NewConfigurationError(target, "",
				fmt.Sprintf("no settings have been defined for the %q host", target), ErrUnknownHost)
		}
		if err := Validate(target, p); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// Validate checks that every required setting of p is non-empty.
func Validate(alias string, p Profile) error {
	for _, key := range RequiredSettings {
		if p[key] == "" {
			return NewConfigurationError(alias, key,
				fmt.Sprintf("the setting %q is not defined for %q host", key, alias), ErrMissingSetting)
		}
	}
	return nil
}
