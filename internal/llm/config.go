// Package llm provides the generation collaborator: a Gemini-backed client
// abstraction plus the resilient call wrapper every stage goes through.
package llm

// ModelTier represents the complexity/capability level of a model.
type ModelTier string

const (
	// TierLite is for simple tasks: requirements extraction, reference lists,
	// image description.
	TierLite ModelTier = "lite"
	// TierStandard is for structured output: structuring raw text, section
	// drafting.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for nuanced rewriting: humanization and refinement.
	TierAdvanced ModelTier = "advanced"
)

// Config holds the model configuration for the process.
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the default Gemini model mapping.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a tier, falling back through standard
// and lite when the tier is not configured.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
