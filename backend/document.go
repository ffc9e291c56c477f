package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todoed/internal/utils"
)

// ErrInvalidDocument is returned when persisted data is not a task list.
var ErrInvalidDocument = errors.New("invalid task document")

// taskListSchema describes the persisted record format: an ordered array of
// {title, done} objects. Other properties are tolerated and dropped on load.
const taskListSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["title", "done"],
		"properties": {
			"title": {"type": "string"},
			"done": {"type": "boolean"}
		}
	}
}`

var documentSchema = jsonschema.MustCompileString("todoed://tasklist.schema.json", taskListSchema)

// EncodeDocument serializes tasks into the persisted JSON document.
// A nil list is written as an empty array.
func EncodeDocument(tasks TaskList) ([]byte, error) {
	if tasks == nil {
		tasks = TaskList{}
	}
	return json.Marshal(tasks)
}

// DecodeDocument parses and validates a persisted JSON document.
func DecodeDocument(data []byte) (TaskList, error) {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, invalidDocument(fmt.Sprintf("not valid JSON: %v", err))
	}

	if err := documentSchema.Validate(raw); err != nil {
		return nil, invalidDocument(schemaErrorDetail(err))
	}

	var tasks TaskList
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, invalidDocument(err.Error())
	}
	if tasks == nil {
		tasks = TaskList{}
	}
	return tasks, nil
}

func invalidDocument(detail string) error {
	return utils.WrapWithSuggestion(
		fmt.Errorf("%w: %s", ErrInvalidDocument, detail),
		"The stored list is corrupt; fix or remove it, then save again",
	)
}

// schemaErrorDetail returns the first leaf cause of a schema validation error.
func schemaErrorDetail(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
