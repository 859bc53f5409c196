// Package usage implements the canonical usage-record shape and the
// pure normalizer that collapses whatever heterogeneous per-call
// record a provider returns into it.
package usage

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"rlmdriver/internal/rlmerr"
)

// Usage is the canonical per-call token/cost shape shared by every
// component that tracks spend.
type Usage struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CachedTokens     int64   `json:"cached_tokens"`
	ReasoningTokens  int64   `json:"reasoning_tokens"`
	Cost             float64 `json:"cost"`
}

// Add returns the field-wise sum of two usage records.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
		CachedTokens:     u.CachedTokens + o.CachedTokens,
		ReasoningTokens:  u.ReasoningTokens + o.ReasoningTokens,
		Cost:             u.Cost + o.Cost,
	}
}

// Zero is the identity element for Add.
var Zero = Usage{}

// Normalize accepts an opaque provider usage payload — either an
// already-decoded Go value (struct, map[string]any) or raw JSON bytes
// — and produces the canonical Usage shape.
//
// Recognized shapes, tried in order:
//   - flat: prompt_tokens, completion_tokens, total_tokens,
//     prompt_tokens_details.cached_tokens,
//     completion_tokens_details.reasoning_tokens, cost
//   - nested: usageMetadata.{promptTokenCount, candidatesTokenCount,
//     totalTokenCount}
//
// Any field that is not a finite number greater than zero is coerced
// to 0, except total_tokens, which falls back to prompt+completion
// when absent or non-numeric. Normalize fails with rlmerr.UsageError
// only when the input cannot be interpreted as a JSON object at all.
func Normalize(raw any) (Usage, error) {
	payload, err := toJSON(raw)
	if err != nil {
		return Usage{}, rlmerr.UsageError{Reason: err.Error()}
	}
	if !gjson.ValidBytes(payload) {
		return Usage{}, rlmerr.UsageError{Reason: "usage payload is not valid JSON"}
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return Usage{}, rlmerr.UsageError{Reason: "usage payload must be a JSON object"}
	}

	prompt := nonNegativeNumber(root, "prompt_tokens", "usageMetadata.promptTokenCount")
	completion := nonNegativeNumber(root, "completion_tokens", "usageMetadata.candidatesTokenCount")
	total := nonNegativeNumber(root, "total_tokens", "usageMetadata.totalTokenCount")
	if total == 0 {
		total = prompt + completion
	}
	cached := nonNegativeNumber(root, "prompt_tokens_details.cached_tokens")
	reasoning := nonNegativeNumber(root, "completion_tokens_details.reasoning_tokens")
	cost := nonNegativeFloat(root, "cost")

	return Usage{
		PromptTokens:     int64(prompt),
		CompletionTokens: int64(completion),
		TotalTokens:      int64(total),
		CachedTokens:     int64(cached),
		ReasoningTokens:  int64(reasoning),
		Cost:             cost,
	}, nil
}

func toJSON(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return []byte(v), nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

// nonNegativeNumber returns the first path (in order) that resolves
// to a finite number greater than zero; otherwise 0.
func nonNegativeNumber(root gjson.Result, paths ...string) float64 {
	for _, path := range paths {
		res := root.Get(path)
		if res.Type == gjson.Number && res.Num > 0 {
			return res.Num
		}
	}
	return 0
}

func nonNegativeFloat(root gjson.Result, path string) float64 {
	res := root.Get(path)
	if res.Type == gjson.Number && res.Num > 0 {
		return res.Num
	}
	return 0
}
