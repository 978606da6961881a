package policy

import (
	"pizza-api/models"
)

// Action is a kind of operation subject to authorization
type Action string

const (
	CreateFranchise    Action = "create franchise"
	DeleteFranchise    Action = "delete franchise"
	CreateStore        Action = "create store"
	DeleteStore        Action = "delete store"
	ListFranchises     Action = "list franchises"
	ListUserFranchises Action = "list user franchises"
	AddMenuItem        Action = "add menu item"
	CreateOrder        Action = "create order"
	ListOrders         Action = "list orders"
	UpdateUser         Action = "update user"
	DeleteUser         Action = "delete user"
)

// Grant is one way an actor can qualify for an action
type Grant string

const (
	Anyone         Grant = "anyone"
	Authenticated  Grant = "authenticated"
	Admin          Grant = "admin"
	FranchiseAdmin Grant = "franchise admin"
	Self           Grant = "self"
)

// Actor is the caller as resolved from its session token. The zero Actor is anonymous.
type Actor struct {
	UserID uint
	Email  string
	Roles  []models.Role
}

func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

func (a Actor) HasRole(r models.Role) bool {
	for _, role := range a.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Target describes the resource an action touches. OwnerID is the user the
// resource belongs to (a profile, an order listing); Franchise carries the
// admin list for store and franchise actions.
type Target struct {
	OwnerID   uint
	Franchise *models.Franchise
}

// Rule lists the grants that allow an action and the message a denial carries
type Rule struct {
	Action Action
	Allow  []Grant
	Denial string
}

// rules is the authoritative authorization table
var rules = []Rule{
	{Action: CreateFranchise, Allow: []Grant{Admin}, Denial: "unable to create a franchise"},
	{Action: DeleteFranchise, Allow: []Grant{Admin}, Denial: "unable to delete a franchise"},
	{Action: CreateStore, Allow: []Grant{Admin, FranchiseAdmin}, Denial: "unable to create a store"},
	{Action: DeleteStore, Allow: []Grant{Admin, FranchiseAdmin}, Denial: "unable to delete a store"},
	{Action: ListFranchises, Allow: []Grant{Anyone}},
	{Action: ListUserFranchises, Allow: []Grant{Admin, Self}, Denial: "unauthorized"},
	{Action: AddMenuItem, Allow: []Grant{Admin}, Denial: "unable to add menu item"},
	{Action: CreateOrder, Allow: []Grant{Authenticated}, Denial: "unauthorized"},
	{Action: ListOrders, Allow: []Grant{Self}, Denial: "unauthorized"},
	// profile edits are self-service only; admins may delete accounts
	{Action: UpdateUser, Allow: []Grant{Self}, Denial: "unauthorized"},
	{Action: DeleteUser, Allow: []Grant{Admin, Self}, Denial: "unauthorized"},
}

var ruleMap = func() map[Action]Rule {
	m := make(map[Action]Rule, len(rules))
	for _, r := range rules {
		m[r.Action] = r
	}
	return m
}()

// Decision is the outcome of Authorize. Reason is set on denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision {
	if reason == "" {
		reason = "unauthorized"
	}
	return Decision{Reason: reason}
}

// Authorize decides whether actor may perform action on target. Unknown
// actions are denied.
func Authorize(actor Actor, action Action, target Target) Decision {
	rule, ok := ruleMap[action]
	if !ok {
		return deny("")
	}
	for _, g := range rule.Allow {
		if granted(g, actor, target) {
			return allow()
		}
	}
	return deny(rule.Denial)
}

func granted(g Grant, actor Actor, target Target) bool {
	switch g {
	case Anyone:
		return true
	case Authenticated:
		return actor.Authenticated()
	case Admin:
		return actor.Authenticated() && actor.HasRole(models.RoleAdmin)
	case FranchiseAdmin:
		return actor.Authenticated() && target.Franchise != nil && target.Franchise.HasAdmin(actor.Email)
	case Self:
		return actor.Authenticated() && target.OwnerID == actor.UserID
	}
	return false
}

// Rules returns the rule table, for documentation endpoints and tests
func Rules() []Rule {
	return rules
}
