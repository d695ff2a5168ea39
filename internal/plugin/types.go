// Package plugin runs external opponent strategies as executables speaking JSON over stdio.
package plugin

import "encoding/json"

// Manifest is the plugin.json file at the root of a plugin directory.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Strategies  []string        `json:"strategies"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Supports reports whether the plugin advertises the named strategy.
// A plugin with no strategies listed answers for its own name only.
func (m Manifest) Supports(strategy string) bool {
	if len(m.Strategies) == 0 {
		return strategy == m.Name
	}
	for _, s := range m.Strategies {
		if s == strategy {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Strategy string          `json:"strategy"`
	Context  json.RawMessage `json:"context"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Move    *float64 `json:"move,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
