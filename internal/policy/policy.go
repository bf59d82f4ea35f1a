// Package policy holds the authorization rules as one pure decision
// function. Handlers resolve the actor and load the target resource first,
// so a Deny here always means "authenticated but forbidden" (HTTP 403);
// missing tokens and missing resources are rejected earlier as 401 and 404.
package policy

import "github.com/iliyamo/authors-api/internal/model"

// Action enumerates the operations the policy rules on.
type Action uint8

const (
	ActionCreate Action = iota
	ActionRead
	ActionList
	ActionUpdate
	ActionDelete
)

// Kind enumerates the resource types the policy rules on.
type Kind uint8

const (
	KindUser Kind = iota
	KindCompany
	KindBook
)

// Actor is the authenticated caller. The role comes from the credential
// store, not from token claims, so demotions take effect immediately.
type Actor struct {
	ID   uint64
	Role model.Role
}

// Resource identifies the target of an action. OwnerID is the authoring or
// owning user id; for a User resource it is the target user's own id. It is
// zero for collection-level actions (create, list).
type Resource struct {
	Kind    Kind
	OwnerID uint64
}

// Decide returns true when actor may perform action on res. The role switch
// is exhaustive over the closed Role set; anything unknown is denied.
//
// Two deliberate quirks are pinned by tests: admins may NOT update or
// delete companies they do not own, and neither admins nor company owners
// may touch another author's books.
func Decide(actor Actor, action Action, res Resource) bool {
	switch res.Kind {
	case KindUser:
		switch action {
		case ActionList:
			return actor.Role == model.RoleAdmin
		case ActionRead, ActionUpdate, ActionDelete:
			return actor.Role == model.RoleAdmin || actor.ID == res.OwnerID
		}
		return false

	case KindCompany:
		switch action {
		case ActionCreate:
			return actor.Role.Valid() // any authenticated actor becomes owner
		case ActionList:
			return actor.Role == model.RoleAdmin
		case ActionRead:
			return actor.Role == model.RoleAdmin || actor.ID == res.OwnerID
		case ActionUpdate, ActionDelete:
			return actor.ID == res.OwnerID
		}
		return false

	case KindBook:
		switch action {
		case ActionRead, ActionList:
			return true // book browsing is public
		case ActionCreate:
			return actor.Role == model.RoleAuthor
		case ActionUpdate, ActionDelete:
			return actor.Role == model.RoleAuthor && actor.ID == res.OwnerID
		}
		return false
	}
	return false
}
