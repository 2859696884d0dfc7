// Package cloud — structured reply validation.
//
// The model is instructed to answer with a JSON object; before trusting that
// output it is validated against the reply schema. Anything that fails to
// unmarshal or validate drops to keyword inference instead of erroring.
package cloud

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/nahjlib/assistant/pkg/assist"
)

// replySchema is the JSON Schema for the structured assistant reply.
const replySchema = `{
	"type": "object",
	"required": ["reply"],
	"properties": {
		"reply": {"type": "string"},
		"action": {
			"type": "object",
			"required": ["command"],
			"properties": {
				"command": {"type": "string"},
				"bool": {"type": "boolean"}
			}
		},
		"searchResults": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// schema compiles the reply schema once. A compile failure disables
// validation rather than breaking the backend (fail open, like the tool-arg
// validators this is modelled on).
func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(replySchema))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		const url = "mem://assist/reply-schema"
		if err := c.AddResource(url, doc); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = c.Compile(url)
	})
	return compiledSchema, schemaErr
}

// structuredReply mirrors the schema above.
type structuredReply struct {
	Reply         string         `json:"reply"`
	Action        *assist.Action `json:"action,omitempty"`
	SearchResults []string       `json:"searchResults,omitempty"`
}

// parseStructured attempts to interpret content as the structured reply JSON.
// ok is false when content is not a JSON object, does not unmarshal, or
// fails schema validation.
func parseStructured(content string) (assist.Turn, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return assist.Turn{}, false
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return assist.Turn{}, false
	}

	if s, err := schema(); err == nil && s != nil {
		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(trimmed)))
		if err != nil {
			return assist.Turn{}, false
		}
		if err := s.Validate(inst); err != nil {
			return assist.Turn{}, false
		}
	}

	return assist.Turn{
		Reply:   reply.Reply,
		Results: reply.SearchResults,
		Action:  reply.Action,
	}, true
}
