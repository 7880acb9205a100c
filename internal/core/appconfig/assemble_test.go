package appconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func storeEntries(host string, kv ...string) []Entry {
	entries := make([]Entry, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		entries = append(entries, Entry{Key: Namespace("", host) + "/" + kv[i], Value: kv[i+1]})
	}
	return entries
}

// =============================================================================
// Assemble Tests
// =============================================================================

func TestAssemble_Example(t *testing.T) {
	entries := storeEntries("prod", "A", "1", "B", "2")

	set := Assemble(entries, Overrides{"A": Suppress(), "C": Set("9")}, "main")

	assert.Equal(t, "-e B=2 -e GIT_BRANCH=main", set.String())
	_, hasA := lookup(set, "A")
	_, hasC := lookup(set, "C")
	assert.False(t, hasA)
	assert.False(t, hasC)
}

func TestAssemble_StoreValuesUnchanged(t *testing.T) {
	entries := storeEntries("prod", "DB_HOST", "db.internal", "DEBUG", "false")

	set := Assemble(entries, nil, "develop")

	assert.Equal(t, VariableSet{
		{Name: "DB_HOST", Value: "db.internal"},
		{Name: "DEBUG", Value: "false"},
		{Name: "GIT_BRANCH", Value: "develop"},
	}, set)
}

func TestAssemble_OverrideReplacesStoreValue(t *testing.T) {
	entries := storeEntries("prod", "FORCE_SCRIPT_NAME", "/ehb", "B", "2")

	set := Assemble(entries, Overrides{"FORCE_SCRIPT_NAME": Set("")}, "main")

	v, ok := lookup(set, "FORCE_SCRIPT_NAME")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, "-e FORCE_SCRIPT_NAME= -e B=2 -e GIT_BRANCH=main", set.String())
}

func TestAssemble_EmptyStore(t *testing.T) {
	set := Assemble(nil, Overrides{"X": Set("1")}, "main")

	assert.Equal(t, "-e GIT_BRANCH=main", set.String())
}

func TestAssemble_StoreBranchKeyIgnored(t *testing.T) {
	entries := storeEntries("prod", "GIT_BRANCH", "stale", "A", "1")

	set := Assemble(entries, nil, "main")

	assert.Equal(t, "-e A=1 -e GIT_BRANCH=main", set.String())
}

func TestAssemble_BranchOverrideCannotChangeBranch(t *testing.T) {
	entries := storeEntries("prod", "A", "1")

	set := Assemble(entries, Overrides{"GIT_BRANCH": Set("other")}, "main")

	v, _ := lookup(set, "GIT_BRANCH")
	assert.Equal(t, "main", v)
}

func TestAssemble_PreservesStoreOrder(t *testing.T) {
	entries := storeEntries("prod", "Z", "1", "A", "2", "M", "3")

	set := Assemble(entries, Overrides{"A": Set("x")}, "b")

	assert.Equal(t, []string{"Z=1", "A=x", "M=3", "GIT_BRANCH=b"}, set.Pairs())
}

func TestAssemble_Deterministic(t *testing.T) {
	entries := storeEntries("prod", "A", "1", "B", "2", "C", "3")
	overrides := Overrides{"B": Suppress(), "C": Set("z")}

	first := Assemble(entries, overrides, "main").String()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Assemble(entries, overrides, "main").String())
	}
}

// =============================================================================
// Table-Driven Property Tests
// =============================================================================

func TestAssemble_Properties_TableDriven(t *testing.T) {
	tests := []struct {
		name      string
		store     []string
		overrides Overrides
		branch    string
	}{
		{"no overrides", []string{"A", "1", "B", "2"}, nil, "main"},
		{"suppress all", []string{"A", "1", "B", "2"}, Overrides{"A": Suppress(), "B": Suppress()}, "main"},
		{"unknown overrides", []string{"A", "1"}, Overrides{"X": Set("1"), "Y": Suppress()}, "dev"},
		{"mixed", []string{"A", "1", "B", "2", "C", "3"}, Overrides{"A": Set("9"), "C": Suppress(), "D": Set("4")}, "release/1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := storeEntries("prod", tt.store...)
			known := map[string]string{}
			for _, e := range entries {
				known[e.Name()] = e.Value
			}

			set := Assemble(entries, tt.overrides, tt.branch)

			branchCount := 0
			for i, v := range set {
				if v.Name == BranchVariable {
					branchCount++
					assert.Equal(t, len(set)-1, i, "branch variable must be last")
					assert.Equal(t, tt.branch, v.Value)
					continue
				}
				storeValue, ok := known[v.Name]
				assert.True(t, ok, "variable %s not in store", v.Name)

				if o, ok := tt.overrides[v.Name]; ok {
					assert.False(t, o.Suppress)
					assert.Equal(t, o.Value, v.Value)
				} else {
					assert.Equal(t, storeValue, v.Value)
				}
			}
			assert.Equal(t, 1, branchCount)

			for name, o := range tt.overrides {
				if o.Suppress {
					_, present := lookup(set, name)
					assert.False(t, present, "suppressed variable %s present", name)
				}
			}
		})
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestEntry_Name(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"/ehb-service/config/prod/DB_HOST", "DB_HOST"},
		{"/ehb-service/config/prod/nested/SECRET", "SECRET"},
		{"/ehb-service/config/prod/TRAILING/", "TRAILING"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Entry{Key: tt.key}.Name())
		})
	}
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "/ehb-service/config/production", Namespace("", "production"))
	assert.Equal(t, "/ehb-service/config/production", Namespace("/ehb-service/config/", "production"))
	assert.Equal(t, "/other/staging", Namespace("/other", "staging"))
}

func TestVariableSet_Args(t *testing.T) {
	set := VariableSet{{Name: "A", Value: "1"}, {Name: "GIT_BRANCH", Value: "main"}}
	assert.Equal(t, []string{"-e", "A=1", "-e", "GIT_BRANCH=main"}, set.Args())
}

// =============================================================================
// Test Helpers
// =============================================================================

func lookup(set VariableSet, name string) (string, bool) {
	for _, v := range set {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}
