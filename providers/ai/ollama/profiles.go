package ollama

import "strings"

// Options are the generation parameters sent in the request "options" object.
type Options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	TopK          int     `json:"top_k"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

// RepairMode selects the chunk-boundary repair applied to streamed text.
type RepairMode int

const (
	RepairNone RepairMode = iota
	// RepairMarkdown keeps bold/italic marker runs whole across chunks and
	// closes a bold span left open at end of stream.
	RepairMarkdown
	// RepairCodeFence keeps ``` fences whole across chunks and closes a code
	// block left open at end of stream.
	RepairCodeFence
)

// Profile is the per-model-family parsing and generation configuration.
type Profile struct {
	Name    string
	Options Options

	// FilterMetadata strips leaked response metadata and chat-template
	// tokens from streamed text, and enables the near-JSON fallback.
	FilterMetadata bool

	Repair RepairMode
}

// profiles are matched in order; the first name contained in the model wins.
var profiles = []Profile{
	{
		Name:    "gemma",
		Options: Options{Temperature: 0.7, TopP: 0.9, TopK: 40, RepeatPenalty: 1.1, NumCtx: 8192},
		Repair:  RepairMarkdown,
	},
	{
		Name:           "qwen",
		Options:        Options{Temperature: 0.7, TopP: 0.8, TopK: 20, RepeatPenalty: 1.05, NumCtx: 32768},
		FilterMetadata: true,
	},
	{
		Name:    "deepseek",
		Options: Options{Temperature: 0.6, TopP: 0.95, TopK: 40, RepeatPenalty: 1.0, NumCtx: 16384},
		Repair:  RepairCodeFence,
	},
	{
		Name:    "llama",
		Options: Options{Temperature: 0.7, TopP: 0.9, TopK: 40, RepeatPenalty: 1.1, NumCtx: 4096},
	},
	{
		Name:    "mistral",
		Options: Options{Temperature: 0.7, TopP: 0.95, TopK: 50, RepeatPenalty: 1.1, NumCtx: 8192},
	},
}

// defaultProfile is the llama configuration, used for unrecognized models.
var defaultProfile = profiles[3]

// ProfileFor selects the profile whose name occurs in model, compared
// case-insensitively. Unknown models get the llama profile.
func ProfileFor(model string) Profile {
	lower := strings.ToLower(model)
	for _, profile := range profiles {
		if strings.Contains(lower, profile.Name) {
			return profile
		}
	}
	return defaultProfile
}
