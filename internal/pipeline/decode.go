package pipeline

import (
	"encoding/json"

	"github.com/jonathan/essayflow/internal/llm"
)

// decodeInto parses a model response as JSON into out, stripping markdown
// code fences first. Returns false when the response is not usable JSON;
// callers fall back to a degraded result instead of failing the stage.
func decodeInto(raw string, out any) bool {
	cleaned := llm.CleanJSONBlock(raw)
	return json.Unmarshal([]byte(cleaned), out) == nil
}
