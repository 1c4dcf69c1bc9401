// Package jsonutil extracts and parses JSON from model responses that may be
// wrapped in markdown code fences or embedded in surrounding prose. Every
// structured-output path in the pipeline (quality scoring, research
// synthesis, script chunking, product analysis) funnels through ParseJSON so
// parse failures are tagged uniformly.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from text.
// Returns the content between the fences, or the original text if no fences
// are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	startIdx := 1 // skip the opening ``` line
	endIdx := len(lines) - 1

	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// ExtractJSON finds and returns the JSON content (object or array) from text
// that may contain surrounding non-JSON content. It finds the first { or [
// and matches it with the last corresponding } or ].
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")

	if objIdx == -1 && arrIdx == -1 {
		return "", fmt.Errorf("no JSON content found")
	}

	var startIdx int
	var endChar string

	if arrIdx == -1 || (objIdx != -1 && objIdx <= arrIdx) {
		startIdx = objIdx
		endChar = "}"
	} else {
		startIdx = arrIdx
		endChar = "]"
	}

	text = text[startIdx:]
	endIdx := strings.LastIndex(text, endChar)
	if endIdx == -1 {
		return "", fmt.Errorf("no closing %s found", endChar)
	}

	return text[:endIdx+1], nil
}

// ParseJSON strips markdown fences from raw model response text, extracts the
// JSON content, and unmarshals it into T. Failures are returned as
// parse-tagged pipeline errors so callers can apply the right degradation
// policy (fail-open in scoring, fatal in primary research synthesis).
func ParseJSON[T any](op, raw string) (T, error) {
	var zero T

	text := StripMarkdownFences(raw)
	jsonStr, err := ExtractJSON(text)
	if err != nil {
		return zero, pipeline.NewError(pipeline.KindParse, op,
			fmt.Errorf("%w (raw length: %d)", err, len(raw)))
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		// Include a truncated preview in the error for debugging.
		preview := jsonStr
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, pipeline.NewError(pipeline.KindParse, op,
			fmt.Errorf("invalid JSON: %w (text: %s)", err, preview))
	}
	return result, nil
}
