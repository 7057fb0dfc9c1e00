// Package protocol implements the in-process agent protocol used by the
// generation pipeline: correlated request/response messages, one-way
// notifications, a tool registry and a synchronous dispatcher.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the type of a protocol message.
type Kind string

// Message kinds
const (
	KindRequest      Kind = "request"
	KindResponse     Kind = "response"
	KindNotification Kind = "notification"
	KindError        Kind = "error"
)

// Param is a single named argument.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered list of arguments. Order is preserved through JSON
// encoding so logs and stage inputs read in the order they were built.
type Params []Param

// NewParams builds Params from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewParams(kv ...any) Params {
	p := make(Params, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		p = p.With(key, kv[i+1])
	}
	return p
}

// With returns params with key set to value. An existing key is replaced in
// place, a new key is appended.
func (p Params) With(key string, value any) Params {
	for i := range p {
		if p[i].Key == key {
			out := make(Params, len(p))
			copy(out, p)
			out[i].Value = value
			return out
		}
	}
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	return append(out, Param{Key: key, Value: value})
}

// Get returns the value for key.
func (p Params) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// String returns the value for key formatted as a string, or "" if absent.
func (p Params) String(key string) string {
	v, ok := p.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Keys returns the parameter names in order.
func (p Params) Keys() []string {
	keys := make([]string, len(p))
	for i, kv := range p {
		keys[i] = kv.Key
	}
	return keys
}

// MarshalJSON encodes params as a JSON object, keeping insertion order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", kv.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into params, keeping document order.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("params: expected object")
	}
	var out Params
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("params: expected string key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("param %s: %w", key, err)
		}
		out = append(out, Param{Key: key, Value: value})
	}
	*p = out
	return nil
}

// ErrorBody is the payload of an error message.
type ErrorBody struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

// Message is the protocol's data unit.
type Message struct {
	Kind   Kind       `json:"kind"`
	ID     string     `json:"id,omitempty"`
	Method string     `json:"method,omitempty"`
	Params Params     `json:"params,omitempty"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// NewID returns a fresh correlation id.
func NewID() string {
	return uuid.New().String()
}

// NewRequest creates a request with a fresh id.
func NewRequest(method string, params Params) Message {
	return Message{
		Kind:   KindRequest,
		ID:     NewID(),
		Method: method,
		Params: params,
	}
}

// NewNotification creates a notification. Notifications never carry an id.
func NewNotification(method string, params Params) Message {
	return Message{
		Kind:   KindNotification,
		Method: method,
		Params: params,
	}
}

// NewResponse answers the request with id.
func NewResponse(id string, result any) Message {
	return Message{
		Kind:   KindResponse,
		ID:     id,
		Result: result,
	}
}

// NewError answers the request with id with a failure.
func NewError(id string, kind ErrorKind, detail string) Message {
	return Message{
		Kind:  KindError,
		ID:    id,
		Error: &ErrorBody{Kind: kind, Detail: detail},
	}
}

// Validate checks the structural rules for the message kind.
func (m Message) Validate() error {
	switch m.Kind {
	case KindRequest:
		if m.ID == "" {
			return fmt.Errorf("request is missing an id")
		}
		if strings.TrimSpace(m.Method) == "" {
			return fmt.Errorf("request is missing a method")
		}
	case KindNotification:
		if m.ID != "" {
			return fmt.Errorf("notification must not carry an id")
		}
		if strings.TrimSpace(m.Method) == "" {
			return fmt.Errorf("notification is missing a method")
		}
	case KindResponse:
		if m.ID == "" {
			return fmt.Errorf("response is missing an id")
		}
	case KindError:
		if m.ID == "" {
			return fmt.Errorf("error is missing an id")
		}
		if m.Error == nil {
			return fmt.Errorf("error message has no error body")
		}
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	return nil
}

// IsError reports whether the message is an error answer.
func (m Message) IsError() bool {
	return m.Kind == KindError
}
