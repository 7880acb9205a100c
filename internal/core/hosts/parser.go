package hosts

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Document Parsing
// =============================================================================

// Format identifies the encoding of a settings document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from a file name.
// Anything other than .yaml/.yml is treated as JSON, which covers the
// conventional extensionless ".fabhosts".
func FormatFromPath(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a settings document.
//
// The top level must be an object keyed by host alias whose values are flat
// objects. Scalar values are converted to strings and null becomes "".
func Parse(data []byte, format Format) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewConfigurationError("", "", "host settings document is empty", ErrInvalidDocument)
	}

	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, NewConfigurationError("", "", "invalid YAML: "+err.Error(), ErrInvalidDocument)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, NewConfigurationError("", "", "invalid JSON: "+err.Error(), ErrInvalidDocument)
		}
		var trailing json.RawMessage
		if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
			return nil, NewConfigurationError("", "", "invalid JSON: unexpected data after the top-level object", ErrInvalidDocument)
		}
	}
	if raw == nil {
		return nil, NewConfigurationError("", "", "top level must be an object of host aliases", ErrInvalidDocument)
	}

	doc := make(Document, len(raw))
	for _, alias := range sortedKeys(raw) {
		settings, err := parseSettings(alias, raw[alias])
		if err != nil {
			return nil, err
		}
		doc[alias] = settings
	}
	return doc, nil
}

func parseSettings(alias string, value any) (Settings, error) {
	if value == nil {
		return Settings{}, nil
	}
	entries, ok := value.(map[string]any)
	if !ok {
		return nil, NewConfigurationError(alias, "", "host entry must be an object", ErrInvalidDocument)
	}

	settings := make(Settings, len(entries))
	for key, v := range entries {
		switch v.(type) {
		case map[string]any, []any:
			return nil, NewConfigurationError(alias, key, "value must be a scalar", ErrInvalidDocument)
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, NewConfigurationError(alias, key, err.Error(), ErrInvalidDocument)
		}
		settings[key] = s
	}
	return settings, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
