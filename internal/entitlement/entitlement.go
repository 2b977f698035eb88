// AngelaMos | 2026
// entitlement.go

package entitlement

// Role is a user's entitlement tier. It is the sole input to access
// decisions; billing linkage fields on the user record are audit-only.
type Role string

const (
	RoleAnonymous  Role = "anonymous"
	RoleRegistered Role = "registered"
	RoleStandard   Role = "standard"
	RolePremium    Role = "premium"
	RoleAdmin      Role = "administrator"
)

// AccessLevel is the entitlement tier a publication requires. Immutable
// once a publication is live.
type AccessLevel string

const (
	AccessPreview  AccessLevel = "preview"
	AccessStandard AccessLevel = "standard"
	AccessExtended AccessLevel = "extended"
)

var roleRank = map[Role]int{
	RoleAnonymous:  0,
	RoleRegistered: 1,
	RoleStandard:   2,
	RolePremium:    3,
	RoleAdmin:      4,
}

// minimumRole maps each access level to the lowest role that may view it
// in full. Administrator outranks everything by construction.
var minimumRole = map[AccessLevel]Role{
	AccessPreview:  RoleAnonymous,
	AccessStandard: RoleStandard,
	AccessExtended: RolePremium,
}

// ParseRole normalizes an arbitrary role string. Unknown or empty input
// degrades to anonymous, never to an error and never to a grant.
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := roleRank[r]; ok {
		return r
	}
	return RoleAnonymous
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the role's position in the total order. Unknown roles rank
// as anonymous.
func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return roleRank[RoleAnonymous]
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

func (r Role) IsSubscriber() bool {
	return r == RoleStandard || r == RolePremium
}

func (l AccessLevel) Valid() bool {
	_, ok := minimumRole[l]
	return ok
}

// RequiredRole returns the lowest role that may view the level in full.
// Unknown levels are treated as the most restrictive.
func RequiredRole(level AccessLevel) Role {
	if minimum, ok := minimumRole[level]; ok {
		return minimum
	}
	return RolePremium
}

// CanViewFull reports whether a viewer with the given role may read content
// at the given access level without truncation.
func CanViewFull(role Role, level AccessLevel) bool {
	return role.AtLeast(RequiredRole(level))
}

// Result is what the content-serving layer renders: either the full body,
// or a truncated body with Locked set so the UI can show an upsell prompt.
type Result struct {
	Body         string
	Locked       bool
	RequiredRole Role
}

// DefaultPreviewBudget is the character budget for truncated gated bodies.
const DefaultPreviewBudget = 350

// Evaluate applies the paywall to a body of text. Pure: no state, no I/O.
func Evaluate(role Role, level AccessLevel, body string, budget int) Result {
	if budget <= 0 {
		budget = DefaultPreviewBudget
	}

	if CanViewFull(role, level) {
		return Result{Body: body, Locked: false, RequiredRole: RequiredRole(level)}
	}

	return Result{
		Body:         Truncate(body, budget),
		Locked:       true,
		RequiredRole: RequiredRole(level),
	}
}
