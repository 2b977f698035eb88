// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// User carries identity plus the current entitlement state. Role is the
// sole authority for access decisions; the billing_* columns are linkage
// kept for audit and support lookups, never consulted by the paywall.
type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Locale       string     `db:"locale"`
	Role         string     `db:"role"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`

	CustomerID         *string    `db:"billing_customer_id"`
	SubscriptionID     *string    `db:"billing_subscription_id"`
	SubscriptionStatus *string    `db:"billing_subscription_status"`
	PeriodStart        *time.Time `db:"billing_period_start"`
	PeriodEnd          *time.Time `db:"billing_period_end"`
	BillingEventAt     *time.Time `db:"billing_event_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) EntitlementRole() entitlement.Role {
	return entitlement.ParseRole(u.Role)
}

func (u *User) IsAdmin() bool {
	return u.EntitlementRole() == entitlement.RoleAdmin
}

const (
	LocaleEN = "en"
	LocaleRU = "ru"
)
