package hosts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Parse Tests
// =============================================================================

func TestParse_JSON(t *testing.T) {
	data := []byte(`{
		"_": {
			"host_string": "example.com",
			"path": "~/sites/project-env/project",
			"repo_url": "git@github.com:org/project.git"
		},
		"production": {},
		"development": {"path": "~/sites/project-dev-env/project"}
	}`)

	doc, err := Parse(data, FormatJSON)
	require.NoError(t, err)

	assert.Len(t, doc, 3)
	assert.Equal(t, "example.com", doc["_"]["host_string"])
	assert.Empty(t, doc["production"])
	assert.Equal(t, "~/sites/project-dev-env/project", doc["development"]["path"])
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
_:
  host_string: example.com
staging:
  path: /srv/stage
`)

	doc, err := Parse(data, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "example.com", doc["_"]["host_string"])
	assert.Equal(t, "/srv/stage", doc["staging"]["path"])
}

func TestParse_ScalarsAreStringified(t *testing.T) {
	data := []byte(`{"prod": {"host_string": "h", "port": 2222, "debug": true, "ratio": 1.5, "unset": null}}`)

	doc, err := Parse(data, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "2222", doc["prod"]["port"])
	assert.Equal(t, "true", doc["prod"]["debug"])
	assert.Equal(t, "1.5", doc["prod"]["ratio"])
	assert.Equal(t, "", doc["prod"]["unset"])
}

func TestParse_NullHostEntry(t *testing.T) {
	doc, err := Parse([]byte(`{"prod": null}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, Settings{}, doc["prod"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  Format
		wantKey string
	}{
		{"empty", "   ", FormatJSON, ""},
		{"invalid json", `{"prod": `, FormatJSON, ""},
		{"invalid yaml", "prod: [[[", FormatYAML, ""},
		{"top level array", `[1, 2]`, FormatJSON, ""},
		{"top level null", `null`, FormatJSON, ""},
		{"host entry not object", `{"prod": "example.com"}`, FormatJSON, ""},
		{"nested object", `{"prod": {"extra": {"a": 1}}}`, FormatJSON, "extra"},
		{"nested array", `{"prod": {"hosts": ["a", "b"]}}`, FormatJSON, "hosts"},
		{"trailing garbage", `{"prod": {"host_string": "h"}} }garbage{`, FormatJSON, ""},
		{"second object", `{"prod": {}} {"staging": {}}`, FormatJSON, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument))

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestParse_TrailingWhitespace(t *testing.T) {
	doc, err := Parse([]byte("{\"prod\": {\"host_string\": \"h\"}}\n\n  "), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "h", doc["prod"]["host_string"])
}

// =============================================================================
// FormatFromPath Tests
// =============================================================================

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{".fabhosts", FormatJSON},
		{"/etc/deploy/hosts.json", FormatJSON},
		{"hosts.yaml", FormatYAML},
		{"hosts.YML", FormatYAML},
		{"hosts", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
}
