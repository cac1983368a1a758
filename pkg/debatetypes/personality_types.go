// Package debatetypes defines personality types for the debate engine.
package debatetypes

// PersonalityConfig is the raw configuration entry for one personality as it
// appears in a personalities file. Exactly one of PromptFile or SystemPrompt
// must be set; entries with both or neither fail resolution deterministically.
type PersonalityConfig struct {
	Name         string `json:"name" yaml:"name"`
	Emoji        string `json:"emoji" yaml:"emoji"`
	Description  string `json:"description" yaml:"description"`
	PromptFile   string `json:"prompt_file,omitempty" yaml:"prompt_file,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// Personality is a fully resolved personality profile. The system prompt has
// already been read from its file or taken inline; downstream code never
// distinguishes the two origins.
type Personality struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Emoji        string `json:"emoji"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}
