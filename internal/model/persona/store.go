package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store exposes persona retrieval for HTTP handlers and the coach.
type Store interface {
	List() []Persona
	FindByID(id Key) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by key.
func (s *MemoryStore) FindByID(id Key) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

type overrideFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads persona overrides from a YAML file and merges them onto base.
// Only the five known keys may be overridden; empty fields keep the base value.
func LoadFile(path string, base []Persona) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Merge(data, base)
}

// Merge applies YAML persona overrides onto base.
func Merge(data []byte, base []Persona) ([]Persona, error) {
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}

	merged := append([]Persona(nil), base...)
	for _, override := range file.Personas {
		if !override.ID.Known() {
			return nil, fmt.Errorf("unknown persona %q", override.ID)
		}
		if override.ID == Default && override.Voice != "" {
			return nil, fmt.Errorf("default persona cannot carry a voice fragment")
		}
		for i := range merged {
			if merged[i].ID != override.ID {
				continue
			}
			applyOverride(&merged[i], override)
		}
	}
	return merged, nil
}

func applyOverride(dst *Persona, src Persona) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Tone != "" {
		dst.Tone = src.Tone
	}
	if src.Voice != "" {
		dst.Voice = src.Voice
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
}
