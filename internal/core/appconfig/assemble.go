package appconfig

import (
	"path"
	"strings"
)

// BranchVariable is the computed variable carrying the deployed branch.
const BranchVariable = "GIT_BRANCH"

// DefaultPrefix is the store namespace holding per-host service config.
const DefaultPrefix = "/ehb-service/config"

// =============================================================================
// Types
// =============================================================================

// Entry is one key/value pair read from the configuration store.
type Entry struct {
	Key   string
	Value string
}

// Name returns the last path segment of the entry key.
func (e Entry) Name() string {
	return path.Base(strings.TrimRight(e.Key, "/"))
}

// Override replaces or suppresses a store-provided variable.
type Override struct {
	Value    string
	Suppress bool
}

// Set returns an override replacing the store value with v.
func Set(v string) Override {
	return Override{Value: v}
}

// Suppress returns the marker override that omits the variable entirely.
func Suppress() Override {
	return Override{Suppress: true}
}

// Overrides maps variable names to overrides.
type Overrides map[string]Override

// Variable is one exported environment variable.
type Variable struct {
	Name  string
	Value string
}

// VariableSet is the ordered set of variables for one container run.
type VariableSet []Variable

// =============================================================================
// Assembly
// =============================================================================

// Namespace returns the store key holding the config of host under prefix.
func Namespace(prefix, host string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return strings.TrimRight(prefix, "/") + "/" + host
}

// Assemble merges store entries with overrides and appends the branch
// variable.
//
// Store order is preserved. Overrides for names the store does not contain
// are dropped. A store entry named GIT_BRANCH is ignored so the result holds
// exactly one branch variable.
func Assemble(entries []Entry, overrides Overrides, branch string) VariableSet {
	set := make(VariableSet, 0, len(entries)+1)
	for _, e := range entries {
		name := e.Name()
		if name == BranchVariable {
			continue
		}
		value := e.Value
		if o, ok := overrides[name]; ok {
			if o.Suppress {
				continue
			}
			value = o.Value
		}
		set = append(set, Variable{Name: name, Value: value})
	}
	return append(set, Variable{Name: BranchVariable, Value: branch})
}

// =============================================================================
// Serialization
// =============================================================================

// Pairs returns the NAME=VALUE words in order.
func (s VariableSet) Pairs() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}

// Args returns the set as container engine arguments: -e NAME=VALUE ...
func (s VariableSet) Args() []string {
	out := make([]string, 0, 2*len(s))
	for _, pair := range s.Pairs() {
		out = append(out, "-e", pair)
	}
	return out
}

// String returns the space-joined -e NAME=VALUE tokens.
func (s VariableSet) String() string {
	return strings.Join(s.Args(), " ")
}
