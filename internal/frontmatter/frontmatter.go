// Package frontmatter reads and writes Markdown documents that carry a
// leading YAML metadata block:
//
//	---
//	title: Launch
//	featured: true
//	order: 5
//	images:
//	  - /work/a.jpg
//	---
//
//	Body text.
//
// Metadata values are restricted to strings, numbers, booleans and lists of
// strings. Parsing never fails: a missing or malformed block yields empty
// metadata and the whole input as body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Kind distinguishes the variants a Value may hold.
type Kind uint8

// Kind values.
const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single metadata value. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// List returns a string list Value. A nil list is stored as empty.
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{Kind: KindList, List: items}
}

// IsEmpty reports whether v is an empty string or an empty list.
// Booleans and numbers are never empty.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindString:
		return v.Str == ""
	case KindList:
		return len(v.List) == 0
	default:
		return false
	}
}

// Field is one key/value pair of a metadata block.
type Field struct {
	Key   string
	Value Value
}

// Metadata is an ordered set of fields. Keys are unique.
type Metadata []Field

// Get returns the value stored under key.
func (m Metadata) Get(key string) (Value, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the string under key, or ("", false) if missing or not a string.
func (m Metadata) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// GetNumber returns the number under key, or (0, false) if missing or not a number.
func (m Metadata) GetNumber(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// GetBool returns the bool under key, or (false, false) if missing or not a bool.
func (m Metadata) GetBool(key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// GetList returns the list under key, or (nil, false) if missing or not a list.
func (m Metadata) GetList(key string) ([]string, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindList {
		return nil, false
	}
	return v.List, true
}

// Set replaces the value under key in place, or appends it.
func (m *Metadata) Set(key string, v Value) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = v
			return
		}
	}
	*m = append(*m, Field{Key: key, Value: v})
}

// Delete removes key if present.
func (m *Metadata) Delete(key string) {
	*m = slices.DeleteFunc(*m, func(f Field) bool { return f.Key == key })
}

// Keys returns the keys in order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for i, f := range m {
		out[i] = f
		if f.Value.List != nil {
			out[i].Value.List = slices.Clone(f.Value.List)
		}
	}
	return out
}

// Parse splits raw into its metadata block and body. The body starts after
// the closing delimiter line; a single blank line separating the two is
// dropped. Input without a well-formed block is returned whole as body.
func Parse(raw string) (Metadata, string) {
	block, body, ok := split(raw)
	if !ok {
		return Metadata{}, raw
	}

	if strings.TrimSpace(block) == "" {
		return Metadata{}, body
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return Metadata{}, raw
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Metadata{}, body
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return Metadata{}, raw
	}

	meta := make(Metadata, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		v, ok := valueFromNode(mapping.Content[i+1])
		if !ok {
			continue
		}
		meta.Set(key, v)
	}

	return meta, body
}

// split locates the delimited block. ok is false when raw does not open with
// a delimiter line or the block is never closed.
func split(raw string) (block, body string, ok bool) {
	first, rest, found := strings.Cut(raw, "\n")
	if !found || strings.TrimRight(first, "\r") != delimiter {
		return "", "", false
	}

	pos := 0
	for {
		nl := strings.IndexByte(rest[pos:], '\n')
		end := len(rest)
		next := len(rest)
		if nl >= 0 {
			end = pos + nl
			next = end + 1
		}

		if strings.TrimRight(rest[pos:end], "\r") == delimiter {
			body = rest[next:]
			if strings.HasPrefix(body, "\r\n") {
				body = body[2:]
			} else if strings.HasPrefix(body, "\n") {
				body = body[1:]
			}
			return rest[:pos], body, true
		}

		if nl < 0 {
			return "", "", false
		}
		pos = next
	}
}

func valueFromNode(n *yaml.Node) (Value, bool) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return scalarValue(n), true
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, child := range n.Content {
			if child.Kind == yaml.AliasNode && child.Alias != nil {
				child = child.Alias
			}
			if child.Kind != yaml.ScalarNode {
				continue
			}
			if child.ShortTag() == "!!null" {
				continue
			}
			items = append(items, child.Value)
		}
		return List(items...), true
	default:
		return Value{}, false
	}
}

func scalarValue(n *yaml.Node) Value {
	switch n.ShortTag() {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return Number(f)
		}
	case "!!null":
		return String("")
	}
	// Timestamps and anything else keep their literal text.
	return String(n.Value)
}

// Serialize renders meta and body as a document that Parse reads back
// unchanged.
func Serialize(meta Metadata, body string) (string, error) {
	var sb strings.Builder
	sb.WriteString(delimiter + "\n")

	if len(meta) > 0 {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range meta {
			val, err := f.Value.node()
			if err != nil {
				return "", fmt.Errorf("serialize %s: %w", f.Key, err)
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}
			mapping.Content = append(mapping.Content, key, val)
		}

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(mapping); err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		sb.Write(buf.Bytes())
	}

	sb.WriteString(delimiter + "\n\n")
	sb.WriteString(body)

	return sb.String(), nil
}

func (v Value) node() (*yaml.Node, error) {
	switch v.Kind {
	case KindString:
		return strNode(v.Str), nil
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return nil, errors.New("number must be finite")
		}
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(v.Num), 10)}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.Num, 'g', -1, 64)}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.Bool)}, nil
	case KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.List {
			seq.Content = append(seq.Content, strNode(item))
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %s", v.Kind)
	}
}

// strNode builds a string scalar. Whitespace-only strings are double quoted:
// yaml.v3 emits a bare line break as a block scalar that reads back empty.
func strNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if s != "" && strings.TrimSpace(s) == "" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}
