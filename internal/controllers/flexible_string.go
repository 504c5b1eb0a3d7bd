package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleString accepts a JSON string or number. Student and document ids
// exported from spreadsheets often arrive as numbers.
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*fs = ""
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*fs = FlexibleString(strings.TrimSpace(val))
	case json.Number:
		*fs = FlexibleString(val.String())
	default:
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	return nil
}

func (fs FlexibleString) String() string {
	return string(fs)
}
