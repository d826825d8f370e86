package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var jsonNull = []byte("null")

// FlexString accepts a JSON string or number. The backends serialize some
// enums and identifiers either way depending on the endpoint.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// ErrorText accepts a JSON string or array of strings and keeps the text
// joined with ", ".
type ErrorText string

func (e *ErrorText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*e = ""
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*e = ErrorText(strings.Join(list, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("error text: %w", err)
	}
	*e = ErrorText(s)
	return nil
}
