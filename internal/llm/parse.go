package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"

	"github.com/hpungsan/notepad/internal/errors"
)

var fenceRegex = regexp.MustCompile("(?s)^```(?:json)?\n(.*?)\n```$")

// StripCodeFences extracts the JSON body from model output: the contents of a
// single ``` or ```json fence, else the span from the first '{' to the last
// '}', else the trimmed text.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fenceRegex.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

// decodeContent parses model output into v, repairing malformed JSON once.
func decodeContent(content string, v any, log zerolog.Logger) error {
	body := StripCodeFences(content)
	if body == "" {
		return errors.NewInvalidLLMOutput("model returned empty content")
	}
	err := json.Unmarshal([]byte(body), v)
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Int("len", len(body)).Msg("model output is not valid JSON, attempting repair")

	fixed, err := jsonrepair.JSONRepair(body)
	if err != nil {
		return errors.NewInvalidLLMOutput("model output is not valid JSON")
	}
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return errors.NewInvalidLLMOutput("model output is not valid JSON")
	}
	log.Info().Msg("repaired malformed model JSON")
	return nil
}
