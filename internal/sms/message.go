package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MessageType distinguishes text messages from voice notifications.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeVoice MessageType = "voice"
)

// Resolver computes a message field for the gateway that is about to send it.
type Resolver[T any] func(ctx context.Context, g Gateway) (T, error)

// Field holds either a literal value or a Resolver that is invoked on every
// send attempt.
type Field[T any] struct {
	value    T
	resolver Resolver[T]
}

// Literal returns a Field that always resolves to v.
func Literal[T any](v T) Field[T] {
	return Field[T]{value: v}
}

// Dynamic returns a Field computed by fn for each gateway.
func Dynamic[T any](fn Resolver[T]) Field[T] {
	return Field[T]{resolver: fn}
}

// IsDynamic reports whether the field is backed by a Resolver.
func (f Field[T]) IsDynamic() bool { return f.resolver != nil }

// Resolve returns the literal value, or the resolver's result for g.
func (f Field[T]) Resolve(ctx context.Context, g Gateway) (T, error) {
	if f.resolver != nil {
		return f.resolver(ctx, g)
	}
	return f.value, nil
}

// Message is the content handed to each gateway. Fields may be literals or
// resolvers so one message can carry different wording per vendor.
type Message struct {
	typ      MessageType
	gateways []string
	signName Field[string]
	content  Field[string]
	template Field[string]
	data     Field[Data]
}

// NewMessage returns an empty text message.
func NewMessage() *Message {
	return &Message{typ: TypeText}
}

// TextMessage returns a message whose content and template are both text.
func TextMessage(text string) *Message {
	return NewMessage().SetContent(text).SetTemplate(text)
}

func (m *Message) Type() MessageType { return m.typ }

func (m *Message) SetType(t MessageType) *Message {
	m.typ = t
	return m
}

// Gateways returns the gateway ids pinned on the message, if any.
func (m *Message) Gateways() []string {
	return append([]string(nil), m.gateways...)
}

func (m *Message) SetGateways(ids ...string) *Message {
	m.gateways = append([]string(nil), ids...)
	return m
}

func (m *Message) SetContent(s string) *Message {
	m.content = Literal(s)
	return m
}

func (m *Message) SetContentFunc(fn Resolver[string]) *Message {
	m.content = Dynamic(fn)
	return m
}

func (m *Message) SetTemplate(s string) *Message {
	m.template = Literal(s)
	return m
}

func (m *Message) SetTemplateFunc(fn Resolver[string]) *Message {
	m.template = Dynamic(fn)
	return m
}

func (m *Message) SetSignName(s string) *Message {
	m.signName = Literal(s)
	return m
}

func (m *Message) SetSignNameFunc(fn Resolver[string]) *Message {
	m.signName = Dynamic(fn)
	return m
}

// SetData stores a copy of d.
func (m *Message) SetData(d Data) *Message {
	m.data = Literal(d.Clone())
	return m
}

func (m *Message) SetDataFunc(fn Resolver[Data]) *Message {
	m.data = Dynamic(fn)
	return m
}

func (m *Message) Content(ctx context.Context, g Gateway) (string, error) {
	return m.content.Resolve(ctx, g)
}

func (m *Message) Template(ctx context.Context, g Gateway) (string, error) {
	return m.template.Resolve(ctx, g)
}

func (m *Message) SignName(ctx context.Context, g Gateway) (string, error) {
	return m.signName.Resolve(ctx, g)
}

// Data returns the template variables for g. Literal data is returned as a
// copy.
func (m *Message) Data(ctx context.Context, g Gateway) (Data, error) {
	d, err := m.data.Resolve(ctx, g)
	if err != nil {
		return nil, err
	}
	if !m.data.IsDynamic() {
		d = d.Clone()
	}
	return d, nil
}

// IsEmpty reports whether the message has no content, template or data.
// Data alone is enough for vendors that take the template id from config.
func (m *Message) IsEmpty() bool {
	if m == nil {
		return true
	}
	if m.content.IsDynamic() || m.template.IsDynamic() || m.data.IsDynamic() {
		return false
	}
	return m.content.value == "" && m.template.value == "" && len(m.data.value) == 0
}

// Param is one template variable.
type Param struct {
	Key   string
	Value any
}

// Data holds template variables in insertion order. Vendors that take
// positional parameters rely on that order.
type Data []Param

// NewData builds Data from alternating keys and values. A trailing key
// without a value is ignored.
func NewData(kv ...any) Data {
	d := make(Data, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		d = append(d, Param{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return d
}

// DataFromMap builds Data from m with keys in sorted order.
func DataFromMap(m map[string]any) Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(Data, 0, len(keys))
	for _, k := range keys {
		d = append(d, Param{Key: k, Value: m[k]})
	}
	return d
}

// DataFromList builds positional Data keyed "0", "1", ...
func DataFromList(values ...any) Data {
	d := make(Data, 0, len(values))
	for i, v := range values {
		d = append(d, Param{Key: strconv.Itoa(i), Value: v})
	}
	return d
}

func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	return append(Data(nil), d...)
}

func (d Data) Get(key string) (any, bool) {
	for _, p := range d {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of d without the given keys.
func (d Data) Without(keys ...string) Data {
	out := make(Data, 0, len(d))
outer:
	for _, p := range d {
		for _, k := range keys {
			if p.Key == k {
				continue outer
			}
		}
		out = append(out, p)
	}
	return out
}

func (d Data) Values() []any {
	out := make([]any, len(d))
	for i, p := range d {
		out[i] = p.Value
	}
	return out
}

// Strings returns the values formatted as strings, in order.
func (d Data) Strings() []string {
	out := make([]string, len(d))
	for i, p := range d {
		out[i] = fmt.Sprint(p.Value)
	}
	return out
}

func (d Data) Map() map[string]any {
	out := make(map[string]any, len(d))
	for _, p := range d {
		out[p.Key] = p.Value
	}
	return out
}

// MarshalJSON encodes d as an object with keys in insertion order.
func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := EncodeJSON(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := EncodeJSON(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order, or an array as
// positional data.
func (d *Data) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("sms: data must be an object or array")
	}
	out := Data{}
	switch delim {
	case '{':
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return err
			}
			out = append(out, Param{Key: kt.(string), Value: v})
		}
	case '[':
		for i := 0; dec.More(); i++ {
			var v any
			if err := dec.Decode(&v); err != nil {
				return err
			}
			out = append(out, Param{Key: strconv.Itoa(i), Value: v})
		}
	default:
		return fmt.Errorf("sms: data must be an object or array")
	}
	*d = out
	return nil
}

// EncodeJSON marshals v like encoding/json but without HTML escaping and
// without a trailing newline. Signed request bodies are hashed as produced
// here.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
