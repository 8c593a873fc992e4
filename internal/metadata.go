package internal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// MetadataKind tags the type held by a MetadataValue
type MetadataKind int

const (
	KindBool MetadataKind = iota
	KindString
	KindNumber
)

// MetadataValue is a bool, string or number attached to an assistant message
type MetadataValue struct {
	Kind   MetadataKind
	Bool   bool
	String string
	Number float64
}

// BoolValue creates a boolean metadata value
func BoolValue(b bool) MetadataValue { return MetadataValue{Kind: KindBool, Bool: b} }

// StringValue creates a string metadata value
func StringValue(s string) MetadataValue { return MetadataValue{Kind: KindString, String: s} }

// NumberValue creates a numeric metadata value
func NumberValue(n float64) MetadataValue { return MetadataValue{Kind: KindNumber, Number: n} }

// Truthy follows the loose truthiness the backend relies on for flags
func (v MetadataValue) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindString:
		return v.String != ""
	case KindNumber:
		return v.Number != 0
	}
	return false
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindString:
		return json.Marshal(v.String)
	case KindNumber:
		return json.Marshal(v.Number)
	}
	return nil, fmt.Errorf("unknown metadata kind %d", v.Kind)
}

func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case bool:
		*v = BoolValue(x)
	case string:
		*v = StringValue(x)
	case float64:
		*v = NumberValue(x)
	default:
		return fmt.Errorf("unsupported metadata value %s", string(data))
	}
	return nil
}

func (v MetadataValue) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindString:
		return v.String, nil
	default:
		return v.Number, nil
	}
}

func (v MetadataValue) text() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.String
	default:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
}

// Metadata holds typed values keyed by the names the backend uses
type Metadata map[string]MetadataValue

// UnmarshalJSON keeps bool, string and number entries and drops anything else
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(Metadata, len(raw))
	for k, r := range raw {
		var v MetadataValue
		if err := v.UnmarshalJSON(r); err != nil {
			LogDebug("Dropping metadata key %q: %v", k, err)
			continue
		}
		out[k] = v
	}
	*m = out
	return nil
}

// PreferenceFlag is a content type the backend detected in a response
type PreferenceFlag int

const (
	FlagUserStory PreferenceFlag = iota
	FlagTestCase
	FlagDevTask
)

// AllPreferenceFlags lists the recognized flags in display order
var AllPreferenceFlags = []PreferenceFlag{FlagUserStory, FlagTestCase, FlagDevTask}

var preferenceSpellings = map[PreferenceFlag][]string{
	FlagUserStory: {"Userstory", "userstory", "UserStory", "user_story"},
	FlagTestCase:  {"Testcase", "testcase", "TestCase", "test_case"},
	FlagDevTask:   {"Devtask", "devtask", "DevTask", "dev_task"},
}

func (f PreferenceFlag) String() string {
	switch f {
	case FlagUserStory:
		return "User Story"
	case FlagTestCase:
		return "Test Case"
	case FlagDevTask:
		return "Dev Task"
	}
	return "Unknown"
}

// Keys returns the wire spellings accepted for the flag
func (f PreferenceFlag) Keys() []string {
	return preferenceSpellings[f]
}

// Flag reports whether any spelling of f is set
func (m Metadata) Flag(f PreferenceFlag) bool {
	for _, key := range f.Keys() {
		if v, ok := m[key]; ok && v.Truthy() {
			return true
		}
	}
	return false
}

// Flags returns the recognized flags that are set
func (m Metadata) Flags() []PreferenceFlag {
	var flags []PreferenceFlag
	for _, f := range AllPreferenceFlags {
		if m.Flag(f) {
			flags = append(flags, f)
		}
	}
	return flags
}

// HasEditable reports whether any boolean entry is true, which enables the
// preference editing flow for a response.
func (m Metadata) HasEditable() bool {
	for _, v := range m {
		if v.Kind == KindBool && v.Bool {
			return true
		}
	}
	return false
}

// EditableKeys returns the boolean keys in sorted order
func (m Metadata) EditableKeys() []string {
	var keys []string
	for k, v := range m {
		if v.Kind == KindBool {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// SetBool sets a boolean entry, creating it when missing
func (m Metadata) SetBool(key string, value bool) {
	m[key] = BoolValue(value)
}

// Clone returns a copy safe to hand out of the controller
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String renders the metadata as sorted key=value pairs
func (m Metadata) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k].text())
	}
	return strings.Join(parts, " ")
}

// FormatMetadataKey turns a camelCase key into a label: "isDraft" -> "Is Draft"
func FormatMetadataKey(key string) string {
	if key == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range key {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PreferencesQuery builds the follow-up request listing every boolean entry
func PreferencesQuery(m Metadata) string {
	var b strings.Builder
	b.WriteString("Update the previous response with the following preferences:\n")
	for _, key := range m.EditableKeys() {
		answer := "No"
		if m[key].Bool {
			answer = "Yes"
		}
		fmt.Fprintf(&b, "- %s: %s\n", FormatMetadataKey(key), answer)
	}
	return b.String()
}
