package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition is the serializable form of a workflow, as exchanged with the
// canvas, stored workflows, and the execution backend. RiskWarning is
// derived state and deliberately not part of the wire shape.
type Definition struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string         `json:"version,omitempty" yaml:"version,omitempty"`
	Nodes       []Node         `json:"nodes" yaml:"nodes"`
	Edges       []Edge         `json:"edges" yaml:"edges"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Graph materializes the definition into a graph model.
func (d *Definition) Graph() *Graph {
	return NewGraphFrom(d.Nodes, d.Edges)
}

// Validate checks structural well-formedness: a name, at least one node,
// unique node IDs, known categories, and edges whose endpoints resolve.
// Rule-table conformance is the validator's job, not the codec's.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("workflow must have at least one node")
	}

	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id: %s", n.ID)
		}
		seen[n.ID] = true
		if !n.Category.Valid() {
			return fmt.Errorf("node %s has unknown category: %s", n.ID, n.Category)
		}
	}

	for _, e := range d.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("edge %s references unknown source: %s", e.ID, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("edge %s references unknown target: %s", e.ID, e.Target)
		}
	}
	return nil
}

// Export serializes the definition to indented JSON.
func (d *Definition) Export() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ToYAML serializes the definition to YAML.
func (d *Definition) ToYAML() (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return string(data), nil
}

// Import parses and validates a definition from JSON.
func Import(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// FromYAML parses and validates a definition from YAML.
func FromYAML(yamlStr string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal([]byte(yamlStr), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// LoadFromFile loads a definition from a JSON or YAML file, chosen by
// extension.
func LoadFromFile(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if isYAMLFile(filename) {
		return FromYAML(string(data))
	}
	return Import(data)
}

// SaveToFile writes the definition as indented JSON.
func (d *Definition) SaveToFile(filename string) error {
	data, err := d.Export()
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func isYAMLFile(filename string) bool {
	n := len(filename)
	return (n > 5 && filename[n-5:] == ".yaml") || (n > 4 && filename[n-4:] == ".yml")
}
