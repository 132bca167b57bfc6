package mapping

import (
	"strings"

	json "github.com/goccy/go-json"
)

// FieldList is a list of column names. Its configuration form is either a
// comma-separated string or an array of strings.
type FieldList []string

// Contains is true if |name| is in the FieldList.
func (l FieldList) Contains(name string) bool {
	for _, f := range l {
		if f == name {
			return true
		}
	}
	return false
}

func splitFields(s string) FieldList {
	var out FieldList
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// UnmarshalJSON accepts a comma-separated string or an array.
func (l *FieldList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = splitFields(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*l = nil
	for _, f := range arr {
		*l = append(*l, splitFields(f)...)
	}
	return nil
}

// MarshalJSON encodes the comma-separated form.
func (l FieldList) MarshalJSON() ([]byte, error) { return json.Marshal(strings.Join(l, ",")) }

// UnmarshalYAML accepts a comma-separated string or a sequence.
func (l *FieldList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*l = splitFields(s)
		return nil
	}
	var arr []string
	if err := unmarshal(&arr); err != nil {
		return err
	}
	*l = nil
	for _, f := range arr {
		*l = append(*l, splitFields(f)...)
	}
	return nil
}

// MarshalYAML encodes the comma-separated form.
func (l FieldList) MarshalYAML() (interface{}, error) { return strings.Join(l, ","), nil }
