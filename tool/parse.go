package tool

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Form discriminates the two accepted tool-call syntaxes. The tagged form is
// checked first; a response matching both parses as FormTagged.
type Form int

// Accepted call syntaxes.
const (
	// FormTagged is the delimited pair: <tool>name</tool><input>{...}</input>
	FormTagged Form = iota
	// FormFenced is a fenced code block containing {"tool": ..., "input": {...}}
	FormFenced
)

// Call is a tool invocation extracted from a model response.
type Call struct {
	Name  string
	Input map[string]any
	Form  Form
}

var (
	taggedRe = regexp.MustCompile(`(?s)<tool>\s*(.+?)\s*</tool>\s*<input>\s*(.*?)\s*</input>`)
	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// ParseCall extracts a tool invocation from a model response, or returns nil
// when the response contains none, in which case the response is the final
// answer.
//
// Malformed JSON in the input position never fails the parse: the literal
// text is preserved under a "raw" key so the tool's own validation reports a
// useful error back to the model.
func ParseCall(response string) *Call {
	if m := taggedRe.FindStringSubmatch(response); m != nil {
		return &Call{
			Name:  strings.TrimSpace(m[1]),
			Input: parseInput(m[2]),
			Form:  FormTagged,
		}
	}

	if m := fencedRe.FindStringSubmatch(response); m != nil {
		var envelope struct {
			Tool  string          `json:"tool"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal([]byte(m[1]), &envelope); err != nil || envelope.Tool == "" {
			return nil
		}
		return &Call{
			Name:  envelope.Tool,
			Input: parseInput(string(envelope.Input)),
			Form:  FormFenced,
		}
	}

	return nil
}

// parseInput decodes the input position into an argument map, substituting
// {"raw": literal} for anything that is not a JSON object.
func parseInput(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return map[string]any{"raw": text}
	}
	if args == nil {
		return map[string]any{}
	}
	return args
}
