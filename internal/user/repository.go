// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vedomo/vedomo-api/internal/billing"
	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	SetRole(ctx context.Context, id string, role entitlement.Role) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	SetRoleFromBilling(
		ctx context.Context,
		id string,
		role entitlement.Role,
		occurredAt time.Time,
	) error
	RecordBillingLinkage(ctx context.Context, id string, l billing.Linkage) error
	SaveCustomerID(ctx context.Context, id, customerID string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, email, password_hash, name, locale, role, token_version,
	       created_at, updated_at, deleted_at,
	       billing_customer_id, billing_subscription_id,
	       billing_subscription_status, billing_period_start,
	       billing_period_end, billing_event_at`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, locale, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at, token_version`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Locale,
		user.Role,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`, userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`, userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

// Update writes profile fields only. Role never travels through this path:
// a profile edit read-modify-writing the role would silently revert a
// billing transition that landed between the read and the write.
func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, locale = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Name,
		user.Locale,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// SetRole is the admin override write. Single statement, no prior read, so
// it cannot lose a concurrent billing transition to a stale round trip.
func (r *repository) SetRole(
	ctx context.Context,
	id string,
	role entitlement.Role,
) error {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, string(role))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set role: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("increment token version: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

// SetRoleFromBilling is the single writer path for billing-driven role
// changes. One guarded statement, so concurrent webhook deliveries for the
// same user serialize on the row: administrators are never touched and an
// event older than the last applied one cannot win.
func (r *repository) SetRoleFromBilling(
	ctx context.Context,
	id string,
	role entitlement.Role,
	occurredAt time.Time,
) error {
	query := `
		UPDATE users
		SET role = $2, billing_event_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		  AND role <> $4
		  AND (billing_event_at IS NULL OR billing_event_at <= $3)`

	result, err := r.db.ExecContext(ctx, query,
		id, string(role), occurredAt, string(entitlement.RoleAdmin))
	if err != nil {
		return fmt.Errorf("set role from billing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role from billing: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Zero rows: classify. The follow-up read is for diagnostics only; the
	// guard above already made the authoritative decision.
	var state struct {
		Role           string     `db:"role"`
		BillingEventAt *time.Time `db:"billing_event_at"`
	}
	err = r.db.GetContext(ctx, &state,
		`SELECT role, billing_event_at FROM users
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("set role from billing: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("set role from billing: %w", err)
	}

	if entitlement.ParseRole(state.Role) == entitlement.RoleAdmin {
		return nil
	}

	return billing.ErrStaleEvent
}

func (r *repository) RecordBillingLinkage(
	ctx context.Context,
	id string,
	l billing.Linkage,
) error {
	query := `
		UPDATE users
		SET billing_subscription_id = $2,
		    billing_customer_id = COALESCE(NULLIF($3, ''), billing_customer_id),
		    billing_subscription_status = $4,
		    billing_period_start = $5,
		    billing_period_end = $6,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		id,
		l.SubscriptionID,
		l.CustomerID,
		l.Status,
		l.PeriodStart,
		l.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("record billing linkage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record billing linkage: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("record billing linkage: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) SaveCustomerID(
	ctx context.Context,
	id, customerID string,
) error {
	query := `
		UPDATE users
		SET billing_customer_id = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, customerID)
	if err != nil {
		return fmt.Errorf("save customer id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save customer id: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("save customer id: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	if params.SubscriptionStatus != "" {
		conditions = append(conditions, fmt.Sprintf(
			"billing_subscription_status = $%d", argIdx))
		args = append(args, params.SubscriptionStatus)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, email, name, locale, role, token_version,
		       created_at, updated_at, deleted_at,
		       billing_customer_id, billing_subscription_id,
		       billing_subscription_status, billing_period_start,
		       billing_period_end, billing_event_at
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
