// Package policy is the single place where per-object access decisions are
// made. Every component checks the caller against a resource through Engine
// instead of reimplementing role checks per endpoint.
package policy

import "github.com/pooriya-cloudS/mediqe/pkg/types"

// Action identifies what the caller is trying to do with a resource
type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionUpload Action = "upload"
)

// Resource is any entity that can name its owning doctor and patient.
// An empty ID means the resource has no party in that position.
type Resource interface {
	AccessParticipants() (doctorID, patientID string)
}

// Engine evaluates role- and ownership-based access rules
type Engine struct{}

// NewEngine creates a new policy engine
func NewEngine() *Engine {
	return &Engine{}
}

// CanAccess reports whether the actor may perform the action on the resource.
// Staff bypasses ownership checks; a doctor may act only on resources where
// they are the doctor; any other caller only where they are the patient.
// Upload is stricter: only the resource's patient or doctor qualifies,
// regardless of staff status.
func (e *Engine) CanAccess(actor *types.UserClaims, action Action, res Resource) bool {
	if actor == nil {
		return false
	}

	doctorID, patientID := res.AccessParticipants()

	if action == ActionUpload {
		return actor.UserID == doctorID || actor.UserID == patientID
	}

	if actor.Role.IsStaff() {
		return true
	}

	if actor.Role == types.RoleDoctor {
		return doctorID != "" && actor.UserID == doctorID
	}

	return patientID != "" && actor.UserID == patientID
}
