package workflow

import "fmt"

// SystemActor is recorded as changed_by for transitions no person triggered.
const SystemActor = "system"

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID      int64
	Name    string
	IsAdmin bool
}

// Label is the changed_by value recorded in status history.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	if a.ID == 0 {
		return SystemActor
	}
	return fmt.Sprintf("user %d", a.ID)
}

// CanAccess reports whether the actor may read records owned by ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	return a.IsAdmin || a.ID == ownerID
}
