// Package yamldom implements the YAML document object model the manifest
// parser walks: a small, source-mark-preserving tree built on top of
// gopkg.in/yaml.v3's *yaml.Node, the way the teacher's pkg/utils/yaml.go
// leans on yaml.v3's node API rather than the higher-level Unmarshal
// entry point when it needs to control emission style.
//
// The DOM intentionally mirrors the structure described in §4.1 rather
// than exposing yaml.v3's richer node-kind set directly: callers see
// only Invalid, Null, Scalar, Sequence, and Mapping.
package yamldom

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// Kind identifies the shape of a Node.
type Kind int

const (
	Invalid Kind = iota
	Null
	Scalar
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case Scalar:
		return "Scalar"
	case Sequence:
		return "Sequence"
	case Mapping:
		return "Mapping"
	default:
		return "Invalid"
	}
}

// Tag is the resolved scalar type tag.
type Tag int

const (
	TagNone Tag = iota
	TagStr
	TagInt
	TagBool
	TagFloat
	TagNull
	TagTimestamp
	TagSeq
	TagMap
)

// Mark is a source location used for diagnostics (§4.1's "preserving
// source marks").
type Mark struct {
	Line   int
	Column int
}

// mappingEntry is one key/value pair within a Mapping node, retained in
// declaration order.
type mappingEntry struct {
	key   string
	value *Node
	mark  Mark
}

// Node is one element of the YAML DOM.
type Node struct {
	Kind  Kind
	Tag   Tag
	Value string // scalar textual value; empty for non-scalars
	Mark  Mark

	seq     []*Node
	entries []mappingEntry
	// keyCount tracks how many times each case-sensitive key was seen,
	// so Lookup can report DuplicateMappingKey lazily as specified.
	keyCount map[string]int
}

// InvalidNode is returned by lookups that fail cleanly (missing key);
// it is a fresh value each time rather than a shared singleton, per the
// design note replacing the source's global invalid-node singleton with
// an explicit, non-aliased placeholder.
func InvalidNode() *Node {
	return &Node{Kind: Invalid}
}

// IsValid reports whether n is non-nil and not the Invalid kind.
func (n *Node) IsValid() bool {
	return n != nil && n.Kind != Invalid
}

// ErrDuplicateMappingKey is returned by Lookup when the requested key
// appeared more than once in the mapping.
type ErrDuplicateMappingKey struct {
	Key string
}

func (e *ErrDuplicateMappingKey) Error() string {
	return fmt.Sprintf("yamldom: duplicate mapping key %q", e.Key)
}

// Lookup resolves key within a Mapping node. A missing key yields
// InvalidNode with a nil error; a key that appeared more than once
// yields ErrDuplicateMappingKey.
func (n *Node) Lookup(key string) (*Node, error) {
	if n == nil || n.Kind != Mapping {
		return InvalidNode(), nil
	}
	if n.keyCount[key] > 1 {
		return InvalidNode(), &ErrDuplicateMappingKey{Key: key}
	}
	for _, e := range n.entries {
		if e.key == key {
			return e.value, nil
		}
	}
	return InvalidNode(), nil
}

// Keys returns the mapping's keys in declaration order (duplicates
// included, so callers validating field tables can detect them).
func (n *Node) Keys() []string {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	keys := make([]string, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.key
	}
	return keys
}

// Entries exposes the mapping's (key, value) pairs in order, for callers
// that need to iterate rather than look up by name (field-table driven
// population, §4.1).
func (n *Node) Entries() [](struct {
	Key   string
	Value *Node
	Mark  Mark
}) {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	out := make([]struct {
		Key   string
		Value *Node
		Mark  Mark
	}, len(n.entries))
	for i, e := range n.entries {
		out[i] = struct {
			Key   string
			Value *Node
			Mark  Mark
		}{Key: e.key, Value: e.value, Mark: e.mark}
	}
	return out
}

// Items returns a Sequence node's elements; nil for non-sequences.
func (n *Node) Items() []*Node {
	if n == nil || n.Kind != Sequence {
		return nil
	}
	return n.seq
}

// Bool returns the scalar's boolean value and whether it parsed as one.
func (n *Node) Bool() (bool, bool) {
	if n == nil || n.Kind != Scalar {
		return false, false
	}
	if n.Tag != TagBool {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(n.Value))
	return b, err == nil
}

// Int returns the scalar's signed 64-bit integer value and whether it
// parsed as one.
func (n *Node) Int() (int64, bool) {
	if n == nil || n.Kind != Scalar {
		return 0, false
	}
	if n.Tag != TagInt {
		return 0, false
	}
	i, err := strconv.ParseInt(n.Value, 10, 64)
	return i, err == nil
}

// Str returns the scalar's string value regardless of tag (every scalar
// has a textual representation).
func (n *Node) Str() string {
	if n == nil || n.Kind != Scalar {
		return ""
	}
	return n.Value
}

// Parse decodes raw YAML bytes (in any of the accepted encodings) into a
// single-document DOM. Multi-document ingestion is handled one call per
// document by ParseAll.
func Parse(raw []byte) (*Node, error) {
	docs, err := ParseAll(raw)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Node{Kind: Null}, nil
	}
	return docs[0], nil
}

// ParseAll decodes raw YAML bytes into one DOM root per document,
// supporting the directory/multi-file ingestion model of §4.1.
func ParseAll(raw []byte) ([]*Node, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("yamldom: decoding input: %w", err)
	}

	dec := yaml.NewDecoder(strings.NewReader(text))
	var docs []*Node
	for {
		var root yaml.Node
		if err := dec.Decode(&root); err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, fmt.Errorf("yamldom: parsing YAML: %w", err)
		}
		node, err := fromYAMLNode(unwrapDocument(&root))
		if err != nil {
			return nil, err
		}
		docs = append(docs, node)
	}
	return docs, nil
}

func unwrapDocument(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		return n.Content[0]
	}
	return n
}

// fromYAMLNode translates a yaml.v3 node tree into the DOM, sniffing
// bool/int tags on unquoted scalars per §4.1's scalar contract and
// rejecting duplicate mapping keys lazily (recorded, not yet reported —
// Lookup reports ErrDuplicateMappingKey only when the duplicated key is
// actually requested).
func fromYAMLNode(n *yaml.Node) (*Node, error) {
	if n == nil {
		return &Node{Kind: Null}, nil
	}
	mark := Mark{Line: n.Line, Column: n.Column}

	switch n.Kind {
	case yaml.ScalarNode:
		return scalarFromYAML(n, mark), nil

	case yaml.SequenceNode:
		items := make([]*Node, 0, len(n.Content))
		for _, c := range n.Content {
			child, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, child)
		}
		return &Node{Kind: Sequence, Mark: mark, seq: items}, nil

	case yaml.MappingNode:
		result := &Node{Kind: Mapping, Mark: mark, keyCount: map[string]int{}}
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			key := keyNode.Value
			child, err := fromYAMLNode(valNode)
			if err != nil {
				return nil, err
			}
			result.keyCount[key]++
			result.entries = append(result.entries, mappingEntry{
				key:   key,
				value: child,
				mark:  Mark{Line: keyNode.Line, Column: keyNode.Column},
			})
		}
		return result, nil

	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)

	default:
		return &Node{Kind: Null, Mark: mark}, nil
	}
}

func scalarFromYAML(n *yaml.Node, mark Mark) *Node {
	node := &Node{Kind: Scalar, Value: n.Value, Mark: mark}

	quoted := n.Style == yaml.DoubleQuotedStyle || n.Style == yaml.SingleQuotedStyle
	switch n.Tag {
	case "!!null":
		node.Kind = Null
		node.Tag = TagNull
		return node
	case "!!bool":
		node.Tag = TagBool
		return node
	case "!!int":
		node.Tag = TagInt
		return node
	case "!!float":
		node.Tag = TagFloat
		return node
	case "!!timestamp":
		node.Tag = TagTimestamp
		return node
	case "!!str":
		node.Tag = TagStr
	default:
		node.Tag = TagStr
	}

	if quoted {
		node.Tag = TagStr
		return node
	}

	// Unquoted scalar resolved to "str" by yaml.v3 (it didn't already
	// classify it): sniff bool and signed-int per §4.1.
	if looksLikeBool(n.Value) {
		node.Tag = TagBool
		return node
	}
	if looksLikeInt(n.Value) {
		node.Tag = TagInt
		return node
	}
	node.Tag = TagStr
	return node
}

func looksLikeBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	default:
		return false
	}
}

func looksLikeInt(v string) bool {
	if v == "" {
		return false
	}
	i := 0
	if v[0] == '-' {
		i = 1
		if len(v) == 1 {
			return false
		}
	}
	for ; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

// decodeText applies the encoding-detection contract of §4.1: UTF-8
// with/without BOM, UTF-16 LE/BE with BOM or byte-statistic detection,
// falling back to Windows-1252; internal representation is always UTF-8.
func decodeText(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		return string(raw[3:]), nil

	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		return decodeUTF16(raw[2:], false), nil

	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		return decodeUTF16(raw[2:], true), nil

	case looksLikeUTF16(raw):
		// Heuristic byte statistics (no BOM): a byte stream dominated by
		// alternating NUL bytes is almost certainly UTF-16 LE ASCII text.
		return decodeUTF16(raw, false), nil
	}

	if isValidUTF8(raw) {
		return string(raw), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding as Windows-1252: %w", err)
	}
	return string(decoded), nil
}

func looksLikeUTF16(raw []byte) bool {
	if len(raw) < 4 || len(raw)%2 != 0 {
		return false
	}
	nulEven, nulOdd := 0, 0
	sample := len(raw)
	if sample > 256 {
		sample = 256
	}
	for i := 0; i < sample; i += 2 {
		if raw[i] == 0 {
			nulEven++
		}
		if i+1 < sample && raw[i+1] == 0 {
			nulOdd++
		}
	}
	return nulOdd*3 > sample/2 && nulEven == 0
}

func decodeUTF16(raw []byte, bigEndian bool) string {
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	u16 := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		if bigEndian {
			u16 = append(u16, uint16(raw[i])<<8|uint16(raw[i+1]))
		} else {
			u16 = append(u16, uint16(raw[i+1])<<8|uint16(raw[i]))
		}
	}
	return string(utf16.Decode(u16))
}

func isValidUTF8(raw []byte) bool {
	i := 0
	for i < len(raw) {
		b := raw[i]
		switch {
		case b < 0x80:
			i++
		case b&0xE0 == 0xC0:
			if !continuationRun(raw, i, 1) {
				return false
			}
			i += 2
		case b&0xF0 == 0xE0:
			if !continuationRun(raw, i, 2) {
				return false
			}
			i += 3
		case b&0xF8 == 0xF0:
			if !continuationRun(raw, i, 3) {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

func continuationRun(raw []byte, start, count int) bool {
	if start+count >= len(raw) {
		return false
	}
	for k := 1; k <= count; k++ {
		if raw[start+k]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
