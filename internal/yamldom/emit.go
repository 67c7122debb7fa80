package yamldom

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EventKind is one input accepted by the Emitter state machine.
type EventKind int

const (
	EventBeginMap EventKind = iota
	EventEndMap
	EventKey
	EventScalar
	EventBeginSeq
	EventEndSeq
)

func (e EventKind) String() string {
	switch e {
	case EventBeginMap:
		return "BeginMap"
	case EventEndMap:
		return "EndMap"
	case EventKey:
		return "Key"
	case EventScalar:
		return "Scalar"
	case EventBeginSeq:
		return "BeginSeq"
	case EventEndSeq:
		return "EndSeq"
	default:
		return "Unknown"
	}
}

// emitterState names the states of the streaming writer described in
// §4.1: BeginMap -> {Key, EndMap}; Key -> {Scalar}; Value -> {Scalar,
// BeginMap, BeginSeq}; BeginSeq -> {Scalar, BeginMap, BeginSeq, EndSeq}.
type emitterState int

const (
	stateRoot emitterState = iota
	stateMapKey
	stateMapValue
	stateSeqItem
)

// ErrInvalidEmitterState is returned by Emit when the supplied event is
// not allowed from the current state.
type ErrInvalidEmitterState struct {
	State emitterState
	Event EventKind
}

func (e *ErrInvalidEmitterState) Error() string {
	return fmt.Sprintf("yamldom: event %s not allowed in state %d", e.Event, e.State)
}

type frame struct {
	node  *yaml.Node
	state emitterState
	key   string // pending key when state == stateMapValue
}

// Emitter is a streaming state-machine builder for canonical YAML
// output: an allowed-input bitmask per state rejects misuse (e.g.
// emitting two values for one key) before an invalid document can be
// produced, matching §4.1's "Emit(event)... fails with
// InvalidEmitterState" contract.
type Emitter struct {
	stack []*frame
	root  *yaml.Node
}

// NewEmitter returns an Emitter ready to accept a single top-level
// value (BeginMap, BeginSeq, or Scalar).
func NewEmitter() *Emitter {
	return &Emitter{stack: []*frame{{state: stateRoot}}}
}

func (em *Emitter) top() *frame {
	return em.stack[len(em.stack)-1]
}

func (em *Emitter) fail(event EventKind) error {
	return &ErrInvalidEmitterState{State: em.top().state, Event: event}
}

// BeginMap opens a new mapping value at the current position.
func (em *Emitter) BeginMap() error {
	top := em.top()
	switch top.state {
	case stateRoot, stateMapValue, stateSeqItem:
	default:
		return em.fail(EventBeginMap)
	}
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: 0}
	em.attach(node)
	em.stack = append(em.stack, &frame{node: node, state: stateMapKey})
	return nil
}

// EndMap closes the innermost open mapping.
func (em *Emitter) EndMap() error {
	top := em.top()
	if top.state != stateMapKey || top.node == nil || top.node.Kind != yaml.MappingNode {
		return em.fail(EventEndMap)
	}
	em.pop()
	return nil
}

// Key emits a mapping key; must be followed by exactly one value event.
func (em *Emitter) Key(name string) error {
	top := em.top()
	if top.state != stateMapKey {
		return em.fail(EventKey)
	}
	top.node.Content = append(top.node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name})
	top.key = name
	top.state = stateMapValue
	return nil
}

// BeginSeq opens a new sequence value at the current position.
func (em *Emitter) BeginSeq() error {
	top := em.top()
	switch top.state {
	case stateRoot, stateMapValue, stateSeqItem:
	default:
		return em.fail(EventBeginSeq)
	}
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	em.attach(node)
	em.stack = append(em.stack, &frame{node: node, state: stateSeqItem})
	return nil
}

// EndSeq closes the innermost open sequence.
func (em *Emitter) EndSeq() error {
	top := em.top()
	if top.state != stateSeqItem || top.node == nil || top.node.Kind != yaml.SequenceNode {
		return em.fail(EventEndSeq)
	}
	em.pop()
	return nil
}

// Scalar emits a plain scalar value with the given tag.
func (em *Emitter) Scalar(value string, tag Tag) error {
	top := em.top()
	switch top.state {
	case stateRoot, stateMapValue, stateSeqItem:
	default:
		return em.fail(EventScalar)
	}
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: yamlTagFor(tag), Style: yaml.Style(0)}
	em.attach(node)
	return nil
}

func yamlTagFor(t Tag) string {
	switch t {
	case TagBool:
		return "!!bool"
	case TagInt:
		return "!!int"
	case TagFloat:
		return "!!float"
	case TagNull:
		return "!!null"
	case TagTimestamp:
		return "!!timestamp"
	default:
		return "!!str"
	}
}

// attach records node as the value produced by the most recent event,
// transitioning out of stateMapValue back to stateMapKey where needed.
func (em *Emitter) attach(node *yaml.Node) {
	if em.root == nil && len(em.stack) == 1 {
		em.root = node
	}
	if len(em.stack) == 1 {
		return
	}
	parent := em.top()
	switch parent.state {
	case stateMapValue:
		parent.node.Content = append(parent.node.Content, node)
		parent.state = stateMapKey
	case stateSeqItem:
		parent.node.Content = append(parent.node.Content, node)
	}
}

func (em *Emitter) pop() {
	finished := em.stack[len(em.stack)-1]
	em.stack = em.stack[:len(em.stack)-1]
	if len(em.stack) == 0 {
		em.root = finished.node
		return
	}
	// Containers were already attached to their parent when opened.
	if em.top().state == stateRoot {
		em.root = finished.node
	}
}

// Document returns the completed root node. Valid only once every
// BeginMap/BeginSeq has been balanced by a matching End event.
func (em *Emitter) Document() (*yaml.Node, error) {
	if len(em.stack) != 1 {
		return nil, fmt.Errorf("yamldom: emitter has %d unclosed scopes", len(em.stack)-1)
	}
	if em.root == nil {
		return nil, fmt.Errorf("yamldom: emitter produced no document")
	}
	return em.root, nil
}

// Marshal renders the completed document to canonical YAML bytes.
// Sequences and mappings are block style (the default yaml.v3 emission
// style once Style is left unset), scalars plain where unambiguous,
// matching §4.1's "final representation is deterministic".
func (em *Emitter) Marshal() ([]byte, error) {
	doc, err := em.Document()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
