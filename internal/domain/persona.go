package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Persona is a named generation preset pairing a system instruction with a
// display name.
type Persona struct {
	Key          string `json:"key"`
	DisplayName  string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"-"`
	Enabled      bool   `json:"enabled"`
}

// PersonaSummary is the public view of an enabled persona.
type PersonaSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PersonaCatalog is the process-wide, read-only persona set keyed by Persona.Key.
type PersonaCatalog struct {
	byKey map[string]Persona
	keys  []string
}

// NewPersonaCatalog validates that every persona has a unique, non-empty key.
func NewPersonaCatalog(personas []Persona) (*PersonaCatalog, error) {
	c := &PersonaCatalog{byKey: make(map[string]Persona, len(personas))}
	for i, p := range personas {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil, fmt.Errorf("domain: persona at position %d has empty key", i)
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("domain: duplicate persona key %q", key)
		}
		p.Key = key
		c.byKey[key] = p
		c.keys = append(c.keys, key)
	}
	sort.Strings(c.keys)
	return c, nil
}

// Lookup returns the persona for key regardless of its enabled flag.
func (c *PersonaCatalog) Lookup(key string) (Persona, bool) {
	if c == nil {
		return Persona{}, false
	}
	p, ok := c.byKey[strings.TrimSpace(key)]
	return p, ok
}

// Enabled returns summaries of all enabled personas.
func (c *PersonaCatalog) Enabled() map[string]PersonaSummary {
	out := make(map[string]PersonaSummary)
	if c == nil {
		return out
	}
	for _, key := range c.keys {
		p := c.byKey[key]
		if !p.Enabled {
			continue
		}
		out[key] = PersonaSummary{Name: p.DisplayName, Description: p.Description}
	}
	return out
}

// Len reports the number of personas, enabled or not.
func (c *PersonaCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}
