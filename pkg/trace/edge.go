package trace

import (
	"encoding/json"
	"fmt"
)

// EdgeType classifies the relationship an [Edge] describes.
type EdgeType int

const (
	// EdgeCall links a caller to a callee.
	EdgeCall EdgeType = iota
	// EdgeReturn links a callee back to its caller.
	EdgeReturn
	// EdgeSequence links two consecutive callees of the same caller.
	EdgeSequence
	// EdgeLoop marks an activation repeated by its caller.
	EdgeLoop
	// EdgeInitial marks the entry into the root activation.
	EdgeInitial
)

var edgeTypeNames = [...]string{
	EdgeCall:     "call",
	EdgeReturn:   "return",
	EdgeSequence: "sequence",
	EdgeLoop:     "loop",
	EdgeInitial:  "initial",
}

// EdgeTypes lists every edge type in declaration order.
var EdgeTypes = []EdgeType{EdgeCall, EdgeReturn, EdgeSequence, EdgeLoop, EdgeInitial}

// String returns the wire name of the edge type.
func (t EdgeType) String() string {
	if t < 0 || int(t) >= len(edgeTypeNames) {
		return fmt.Sprintf("EdgeType(%d)", int(t))
	}
	return edgeTypeNames[t]
}

// Valid reports whether t is one of the declared edge types.
func (t EdgeType) Valid() bool { return t >= 0 && int(t) < len(edgeTypeNames) }

// Structural reports whether edges of this type place nodes in the call tree.
func (t EdgeType) Structural() bool { return t == EdgeCall || t == EdgeSequence }

// ParseEdgeType converts a wire name into an [EdgeType].
func ParseEdgeType(s string) (EdgeType, error) {
	for i, name := range edgeTypeNames {
		if name == s {
			return EdgeType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEdgeType, s)
}

// MarshalJSON encodes the edge type as its wire name.
func (t EdgeType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEdgeType, int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a wire name into the edge type.
func (t *EdgeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEdgeType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Membership tells which trial(s) of a diff an edge belongs to.
type Membership int

const (
	// Shared edges exist in both trials (or the dataset has a single trial).
	Shared Membership = 0
	// OnlyTrial1 edges exist only in the first trial.
	OnlyTrial1 Membership = 1
	// OnlyTrial2 edges exist only in the second trial.
	OnlyTrial2 Membership = 2
)

// String returns a short name used for marker and class identifiers.
func (m Membership) String() string {
	switch m {
	case Shared:
		return "shared"
	case OnlyTrial1:
		return "trial1"
	case OnlyTrial2:
		return "trial2"
	default:
		return fmt.Sprintf("Membership(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared memberships.
func (m Membership) Valid() bool { return m >= Shared && m <= OnlyTrial2 }
