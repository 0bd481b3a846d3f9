package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Agent is a logical agent. Each maps to one upstream agent id through
// configuration.
type Agent string

const (
	AgentHM Agent = "hm"
	AgentBM Agent = "bm"
)

var Agents = []Agent{AgentHM, AgentBM}

// ParseAgent accepts exactly "hm" or "bm".
func ParseAgent(v string) (Agent, error) {
	switch a := Agent(v); a {
	case AgentHM, AgentBM:
		return a, nil
	}
	return "", &ValidationError{Field: "agent", Message: `"agent" is required: hm or bm`}
}

// Type is the content type of a training record.
type Type string

const (
	TypeText     Type = "TEXT"
	TypeWebsite  Type = "WEBSITE"
	TypeVideo    Type = "VIDEO"
	TypeDocument Type = "DOCUMENT"
)

// Types is the fixed enumeration order. Unfiltered listings are grouped in
// this order.
var Types = []Type{TypeText, TypeWebsite, TypeVideo, TypeDocument}

// ParseType reports whether v is one of the four content types. Matching is
// exact; anything else means "no filter".
func ParseType(v string) (Type, bool) {
	for _, t := range Types {
		if string(t) == v {
			return t, true
		}
	}
	return "", false
}

// Record is one training item as returned by upstream. Fields the proxy
// does not model are kept in Extra. A decoded Record whose modelled fields
// are left alone marshals back to the exact upstream bytes.
type Record struct {
	ID    string
	Type  Type
	Text  string
	Image string
	Extra map[string]json.RawMessage

	raw  json.RawMessage
	seen recordFields
}

type recordFields struct {
	id, typ, text, image string
}

func (r Record) fields() recordFields {
	return recordFields{id: r.ID, typ: string(r.Type), text: r.Text, image: r.Image}
}

var recordKeys = []string{"id", "type", "text", "image"}

func (r *Record) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*r = Record{}
	if raw, ok := fields["id"]; ok {
		id, err := looseString(raw)
		if err != nil {
			return fmt.Errorf("training id: %w", err)
		}
		r.ID = id
	}
	if raw, ok := fields["type"]; ok {
		s, err := looseString(raw)
		if err != nil {
			return fmt.Errorf("training type: %w", err)
		}
		r.Type = Type(s)
	}
	if raw, ok := fields["text"]; ok {
		s, err := looseString(raw)
		if err != nil {
			return fmt.Errorf("training text: %w", err)
		}
		r.Text = s
	}
	if raw, ok := fields["image"]; ok {
		s, err := looseString(raw)
		if err != nil {
			return fmt.Errorf("training image: %w", err)
		}
		r.Image = s
	}
	for _, k := range recordKeys {
		delete(fields, k)
	}
	if len(fields) > 0 {
		r.Extra = fields
	}
	r.raw = append(json.RawMessage(nil), b...)
	r.seen = r.fields()
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw != nil && r.seen == r.fields() {
		return r.raw, nil
	}
	out := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["id"] = r.ID
	if r.Type != "" {
		out["type"] = r.Type
	}
	out["text"] = r.Text
	if r.Image != "" {
		out["image"] = r.Image
	}
	return json.Marshal(out)
}

// looseString accepts JSON strings, numbers and null. Upstream ids have been
// seen as both strings and numbers.
func looseString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unexpected value %s", raw)
	}
	return n.String(), nil
}

// decodeRecordList accepts a bare array or an object wrapping it under
// "data" or "trainings".
func decodeRecordList(b []byte) ([]Record, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []Record{}, nil
	}
	if b[0] == '[' {
		var out []Record
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []Record{}
		}
		return out, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"data", "trainings"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			return decodeRecordList(trimmed)
		}
	}
	return []Record{}, nil
}

// CreateInput is what a caller may supply when creating a record. There is
// no type: upstream only accepts TEXT on creation, and non-text content is
// sent as a TEXT record whose Text is the URL.
type CreateInput struct {
	Text        string
	Image       string
	CallbackURL string
}

// UpdateInput is what a caller may change on an existing record.
type UpdateInput struct {
	Text  string
	Image string
}

type createBody struct {
	Type        Type   `json:"type"`
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type updateBody struct {
	Type  Type   `json:"type"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// optional blanks whitespace-only values so omitempty leaves them out of
// the outbound body. Anything else is sent as given. Upstream treats a
// present key differently from an absent one.
func optional(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}
