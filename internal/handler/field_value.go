package handler

import (
	"encoding/json"
	"fmt"
)

// FieldValue is a form value posted either as a string or a list of
// strings.
type FieldValue []string

func (v *FieldValue) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*v = FieldValue{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("field value must be a string or a list of strings")
	}
	*v = FieldValue(many)
	return nil
}
