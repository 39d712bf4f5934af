// Package lifecycle models per-object lifecycle state and the fixed
// transition table that event operations drive it through.
package lifecycle

import "fmt"

// State is the lifecycle state of a single object.
type State uint8

const (
	// Present means the object exists and has seen no operations yet.
	Present State = iota
	// DeleteMarker means the object's key is covered by a delete marker.
	DeleteMarker
	// Expired means the object data is gone.
	Expired
	// DeleteMarkerDeleted means the delete marker itself is gone; the
	// object has completed its lifecycle.
	DeleteMarkerDeleted
	// WeirdCase absorbs objects hit by duplicate or disordered log lines
	// beyond the modeled lifecycle. Expected in small volume only.
	WeirdCase
)

func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case DeleteMarker:
		return "delete_marker"
	case Expired:
		return "expired"
	case DeleteMarkerDeleted:
		return "delete_marker_deleted"
	case WeirdCase:
		return "weird_case"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Operation is an event operation applied to one object.
type Operation uint8

const (
	// Delete places a delete marker, or removes one that already exists.
	Delete Operation = iota
	// Expire removes object data once its key is marked.
	Expire
)

func (o Operation) String() string {
	switch o {
	case Delete:
		return "delete"
	case Expire:
		return "expire"
	default:
		return fmt.Sprintf("operation(%d)", uint8(o))
	}
}

// ParseOperation maps the wire spelling of an operation to its tag.
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "delete":
		return Delete, nil
	case "expire":
		return Expire, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", s)
	}
}

// Transition returns the state that follows current under op.
//
// The canonical lifecycle is Present → DeleteMarker → Expired →
// DeleteMarkerDeleted. Off-path pairs come from duplicate or disordered log
// lines and land in explicit anomaly outcomes instead of aborting the run;
// WeirdCase absorbs every further operation. A pair outside the modeled
// domain is a logic error, never a recoverable input condition.
func Transition(current State, op Operation) (State, error) {
	switch op {
	case Delete:
		switch current {
		case Present:
			return DeleteMarker, nil
		case DeleteMarker:
			// Anomaly: marker deleted without an expire in between.
			return DeleteMarkerDeleted, nil
		case Expired:
			// Anomaly: delete after the data is already gone.
			return WeirdCase, nil
		case DeleteMarkerDeleted:
			return WeirdCase, nil
		case WeirdCase:
			return WeirdCase, nil
		}
	case Expire:
		switch current {
		case Present:
			// Anomaly: expire without a preceding delete marker.
			return DeleteMarkerDeleted, nil
		case DeleteMarker:
			return Expired, nil
		case Expired:
			return DeleteMarkerDeleted, nil
		case DeleteMarkerDeleted:
			return WeirdCase, nil
		case WeirdCase:
			return WeirdCase, nil
		}
	}
	return 0, fmt.Errorf("no transition for operation %s on state %s", op, current)
}
