// Package capability holds the static per-model limits and prices of the remote API, as data
// tables plus free validation and cost functions.
package capability

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownModel is returned by the Lookup functions for model ids missing from the tables.
var ErrUnknownModel = errors.New("unknown model")

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// ChatProfile describes one chat model variant. Prices are in dollars per 1K tokens; a zero
// CachedInputPer1K means the model has no cached-input discount.
type ChatProfile struct {
	Model            string
	Temperature      Range
	TopP             Range
	FrequencyPenalty Range
	PresencePenalty  Range
	MinOutputTokens  int
	MaxOutputTokens  int
	ContextWindow    int
	InputPer1K       float64
	CachedInputPer1K float64
	OutputPer1K      float64
}

func chatProfile(model string, input, cached, output float64, maxOutputTokens, contextWindow int) ChatProfile {
	return ChatProfile{
		Model:            model,
		Temperature:      Range{Min: 0, Max: 2},
		TopP:             Range{Min: 0, Max: 1},
		FrequencyPenalty: Range{Min: 0, Max: 2},
		PresencePenalty:  Range{Min: 0, Max: 2},
		MinOutputTokens:  1,
		MaxOutputTokens:  maxOutputTokens,
		ContextWindow:    contextWindow,
		InputPer1K:       input,
		CachedInputPer1K: cached,
		OutputPer1K:      output,
	}
}

// ChatModels is the table of supported chat models keyed by API model id.
var ChatModels = map[string]ChatProfile{
	"gpt-4o":                 chatProfile("gpt-4o", 0.0025, 0.00125, 0.01, 16384, 128000),
	"gpt-4o-2024-11-20":      chatProfile("gpt-4o-2024-11-20", 0.0025, 0.00125, 0.01, 16384, 128000),
	"gpt-4o-2024-08-06":      chatProfile("gpt-4o-2024-08-06", 0.0025, 0.00125, 0.01, 16384, 128000),
	"gpt-4o-2024-05-13":      chatProfile("gpt-4o-2024-05-13", 0.005, 0, 0.015, 4096, 128000),
	"chatgpt-4o-latest":      chatProfile("chatgpt-4o-latest", 0.005, 0, 0.015, 16384, 128000),
	"gpt-4o-mini":            chatProfile("gpt-4o-mini", 0.00015, 0.000075, 0.0006, 16384, 128000),
	"gpt-4o-mini-2024-07-18": chatProfile("gpt-4o-mini-2024-07-18", 0.00015, 0.000075, 0.0006, 16384, 128000),
	"o1-preview":             chatProfile("o1-preview", 0.015, 0.0075, 0.06, 32768, 128000),
	"o1-preview-2024-09-12":  chatProfile("o1-preview-2024-09-12", 0.015, 0.0075, 0.06, 32768, 128000),
	"o1-mini":                chatProfile("o1-mini", 0.003, 0, 0.012, 65536, 128000),
	"o1-mini-2024-09-12":     chatProfile("o1-mini-2024-09-12", 0.003, 0, 0.012, 65536, 128000),
}

// LookupChat returns the profile registered for model.
func LookupChat(model string) (ChatProfile, error) {
	profile, ok := ChatModels[model]
	if !ok {
		return ChatProfile{}, fmt.Errorf("chat model %q: %w", model, ErrUnknownModel)
	}
	return profile, nil
}

// ChatModelIDs returns the registered chat model ids in lexical order.
func ChatModelIDs() []string {
	return sortedKeys(ChatModels)
}

func CheckTemperature(p ChatProfile, temperature float64) bool {
	return p.Temperature.Contains(temperature)
}

func CheckTopP(p ChatProfile, topP float64) bool {
	return p.TopP.Contains(topP)
}

func CheckFrequencyPenalty(p ChatProfile, penalty float64) bool {
	return p.FrequencyPenalty.Contains(penalty)
}

func CheckPresencePenalty(p ChatProfile, penalty float64) bool {
	return p.PresencePenalty.Contains(penalty)
}

// CheckTokens reports whether tokens is an acceptable max-output-tokens value for the model.
func CheckTokens(p ChatProfile, tokens int) bool {
	return tokens >= p.MinOutputTokens && tokens <= p.MaxOutputTokens
}

// Cost prices a request with separately known input and output token counts.
func Cost(p ChatProfile, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPer1K/1000 + float64(outputTokens)*p.OutputPer1K/1000
}

// SymmetricCost prices tokens at both the input and the output rate, for callers that do not
// know the split between the two.
func SymmetricCost(p ChatProfile, tokens int) float64 {
	return Cost(p, tokens, tokens)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
