package voice

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed voices.yaml
var builtinCatalog []byte

// Voice describes a synthesis voice exposed to clients.
type Voice struct {
	ID          string   `json:"voice_id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Language    string   `json:"language" yaml:"language"`
	Gender      string   `json:"gender,omitempty" yaml:"gender"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Styles      []string `json:"styles" yaml:"styles"`
}

// SupportsStyle reports whether style is listed for the voice (case-insensitive).
func (v Voice) SupportsStyle(style string) bool {
	for _, s := range v.Styles {
		if strings.EqualFold(s, style) {
			return true
		}
	}
	return false
}

type catalogFile struct {
	DefaultStyles []string `yaml:"default_styles"`
	Voices        []Voice  `yaml:"voices"`
}

// Parse decodes a YAML voice catalog.
func Parse(data []byte) (*MemoryStore, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode voice catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Voices))
	for i, v := range file.Voices {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return nil, fmt.Errorf("voice catalog entry %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("voice catalog has duplicate id %q", id)
		}
		seen[id] = struct{}{}
		if len(v.Styles) == 0 {
			file.Voices[i].Styles = append([]string(nil), file.DefaultStyles...)
		}
	}

	return NewMemoryStore(file.Voices, file.DefaultStyles), nil
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *MemoryStore {
	store, err := Parse(builtinCatalog)
	if err != nil {
		panic(err)
	}
	return store
}
