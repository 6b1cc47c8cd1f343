package session

import (
	"fmt"

	"github.com/chazu/burl/pkg/gesture"
	"github.com/chazu/burl/pkg/kernel"
)

// ApplyIntent performs the session side of a recognized gesture: Select and
// Activate select the target, LongPressDelete deletes it. Announcing an
// activation and tearing down the target's recognizer are left to the caller.
func (s *Synchronizer) ApplyIntent(e gesture.Event) error {
	id := kernel.ObjectID(e.Target)
	switch e.Intent {
	case gesture.Select, gesture.Activate:
		return s.Select(id)
	case gesture.LongPressDelete:
		return s.DeleteObject(id)
	case gesture.None:
		return nil
	default:
		return fmt.Errorf("apply intent %d: unsupported", int(e.Intent))
	}
}
