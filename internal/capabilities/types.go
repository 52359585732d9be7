package capabilities

import "gopkg.in/yaml.v3"

// ModelCapabilities represents the limits the pipeline needs for one model
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Limits
	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`

	// InputCharBudget caps how much extracted text is sent in one prompt.
	// Zero means "derive from the context window".
	InputCharBudget int `yaml:"input_char_budget" json:"input_char_budget"`

	// Pricing per million tokens
	InputPrice  float64 `yaml:"input_price" json:"input_price"`
	OutputPrice float64 `yaml:"output_price" json:"output_price"`
}

// CharBudget returns the input character budget, falling back to roughly
// three characters per token of half the context window.
func (m *ModelCapabilities) CharBudget() int {
	if m.InputCharBudget > 0 {
		return m.InputCharBudget
	}
	if m.ContextWindow > 0 {
		return m.ContextWindow / 2 * 3
	}
	return DefaultCharBudget
}

// DefaultCharBudget applies to models missing from the registry
const DefaultCharBudget = 100000

// ProviderCapabilities represents all models for a provider
type ProviderCapabilities struct {
	Provider string              `yaml:"provider" json:"provider"`
	Models   []ModelCapabilities `yaml:"-" json:"models"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve model order from YAML file
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "provider" {
			p.Provider = node.Content[i+1].Value
			break
		}
	}

	type modelsOnly struct {
		Models map[string]ModelCapabilities `yaml:"models"`
	}
	var m modelsOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	// modelsNode.Content alternates key, value, key, value...
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "models" {
			modelsNode := node.Content[i+1]
			for j := 0; j+1 < len(modelsNode.Content); j += 2 {
				modelID := modelsNode.Content[j].Value
				if model, ok := m.Models[modelID]; ok {
					model.ID = modelID
					p.Models = append(p.Models, model)
				}
			}
			break
		}
	}

	return nil
}
