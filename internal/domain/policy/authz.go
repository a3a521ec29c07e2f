// Package policy holds the authorization rules for adoption and user actions.
// Every function here is pure: it decides from the subject and the target only.
package policy

import "github.com/oksasatya/go-adoptme/internal/domain/entity"

type Action string

const (
	ListAllAdoptions  Action = "list-all-adoptions"
	ReadAdoption      Action = "read-adoption"
	CreateAdoption    Action = "create-adoption"
	PatchNotes        Action = "patch-notes"
	PatchFee          Action = "patch-fee"
	ApproveAdoption   Action = "approve"
	RejectAdoption    Action = "reject"
	CompleteAdoption  Action = "complete"
	CancelAdoption    Action = "cancel"
	DeleteAdoption    Action = "delete"
	ListUserAdoptions Action = "list-user-adoptions"
)

// Target is what the action applies to. Adoption is nil for actions that do
// not address a single adoption; PetOwner is the current owner of the
// adoption's pet, if any; UserID is the user a create or list addresses.
type Target struct {
	Adoption *entity.Adoption
	PetOwner string
	UserID   string
}

// Allow decides whether subject may perform action on target.
// Only the "who" is decided here; state admissibility is the engine's concern.
func Allow(s entity.Subject, a Action, t Target) bool {
	if !s.Authenticated() {
		return false
	}
	switch a {
	case ListAllAdoptions:
		return true
	case ReadAdoption:
		if s.IsAdmin() {
			return true
		}
		if t.Adoption == nil {
			return false
		}
		return s.ID == t.Adoption.Owner || (t.PetOwner != "" && s.ID == t.PetOwner)
	case CreateAdoption:
		return t.UserID != "" && s.ID == t.UserID
	case PatchNotes, CancelAdoption:
		if s.IsAdmin() {
			return true
		}
		return t.Adoption != nil && s.ID == t.Adoption.Owner
	case PatchFee, ApproveAdoption, RejectAdoption, CompleteAdoption, DeleteAdoption:
		return s.IsAdmin()
	case ListUserAdoptions:
		return s.IsAdmin() || (t.UserID != "" && s.ID == t.UserID)
	}
	return false
}
