package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"autodraft/internal/domain"
)

type personaEntry struct {
	Key          string `yaml:"key"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	SystemPrompt string `yaml:"system_prompt"`
	Enabled      *bool  `yaml:"enabled"`
}

type personaFile struct {
	Personas []personaEntry `yaml:"personas"`
}

// BuiltinPersonas are used when no personas file is configured.
func BuiltinPersonas() []domain.Persona {
	return []domain.Persona{
		{
			Key:          "gpt1",
			DisplayName:  "Blog Writer",
			Description:  "SEO-aware blog articles",
			SystemPrompt: "You are a professional blog writer. Write an engaging, SEO-aware blog article.",
			Enabled:      true,
		},
		{
			Key:          "gpt2",
			DisplayName:  "News Writer",
			Description:  "Objective news articles",
			SystemPrompt: "You are a professional journalist. Write an objective and accurate news article.",
			Enabled:      true,
		},
	}
}

// LoadPersonas reads the catalogue from path, or returns the built-ins when
// path is empty.
func LoadPersonas(path string) (*domain.PersonaCatalog, error) {
	if path == "" {
		return domain.NewPersonaCatalog(BuiltinPersonas())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigurationError("personas_file_unreadable", fmt.Errorf("config: read personas: %w", err))
	}
	return ParsePersonas(data)
}

// ParsePersonas decodes a YAML document with a top-level "personas" list.
// Entries without an explicit enabled flag are enabled.
func ParsePersonas(data []byte) (*domain.PersonaCatalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f personaFile
	if err := dec.Decode(&f); err != nil {
		return nil, domain.ConfigurationError("personas_file_invalid", fmt.Errorf("config: decode personas: %w", err))
	}
	if len(f.Personas) == 0 {
		return nil, domain.ConfigurationError("personas_file_invalid", errors.New("config: personas file defines no personas"))
	}

	personas := make([]domain.Persona, 0, len(f.Personas))
	for _, e := range f.Personas {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		personas = append(personas, domain.Persona{
			Key:          e.Key,
			DisplayName:  e.Name,
			Description:  e.Description,
			SystemPrompt: e.SystemPrompt,
			Enabled:      enabled,
		})
	}
	catalog, err := domain.NewPersonaCatalog(personas)
	if err != nil {
		return nil, domain.ConfigurationError("personas_file_invalid", err)
	}
	return catalog, nil
}
