// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedomo/vedomo-api/internal/billing"
	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestUpdateWritesProfileFieldsOnly(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Exactly three binds: id, name, locale. A role bind here would let a
	// profile edit write back a role read before a concurrent billing
	// transition landed.
	mock.ExpectQuery("UPDATE users").
		WithArgs("u1", "New Name", "en").
		WillReturnRows(sqlmock.
			NewRows([]string{"updated_at"}).
			AddRow(time.Now().UTC()))

	user := &User{
		ID:     "u1",
		Name:   "New Name",
		Locale: "en",
		Role:   "registered",
	}

	err := repo.Update(context.Background(), user)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users").
		WithArgs("u1", "administrator").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetRole(context.Background(), "u1", entitlement.RoleAdmin)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRoleUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRole(context.Background(), "ghost", entitlement.RolePremium)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSetRoleFromBillingApplies(t *testing.T) {
	repo, mock := newMockRepo(t)
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE users").
		WithArgs("u1", "standard", occurred, "administrator").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetRoleFromBilling(
		context.Background(), "u1", entitlement.RoleStandard, occurred)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRoleFromBillingUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	occurred := time.Now().UTC()

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT role, billing_event_at").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"role", "billing_event_at"}))

	err := repo.SetRoleFromBilling(
		context.Background(), "ghost", entitlement.RolePremium, occurred)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSetRoleFromBillingAdministratorIsNoOp(t *testing.T) {
	repo, mock := newMockRepo(t)
	occurred := time.Now().UTC()

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT role, billing_event_at").
		WithArgs("admin1").
		WillReturnRows(sqlmock.
			NewRows([]string{"role", "billing_event_at"}).
			AddRow("administrator", nil))

	err := repo.SetRoleFromBilling(
		context.Background(), "admin1", entitlement.RoleRegistered, occurred)

	// Downgrade attempts against administrators succeed silently without
	// touching the row.
	assert.NoError(t, err)
}

func TestSetRoleFromBillingStaleEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newer := occurred.Add(time.Hour)

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT role, billing_event_at").
		WithArgs("u1").
		WillReturnRows(sqlmock.
			NewRows([]string{"role", "billing_event_at"}).
			AddRow("registered", newer))

	err := repo.SetRoleFromBilling(
		context.Background(), "u1", entitlement.RolePremium, occurred)

	assert.ErrorIs(t, err, billing.ErrStaleEvent)
}

func TestRecordBillingLinkage(t *testing.T) {
	repo, mock := newMockRepo(t)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	linkage := billing.Linkage{
		SubscriptionID: "sub_123",
		CustomerID:     "ctm_123",
		Status:         billing.StatusActive,
		PeriodStart:    &start,
		PeriodEnd:      &end,
	}

	mock.ExpectExec("UPDATE users").
		WithArgs("u1", "sub_123", "ctm_123", billing.StatusActive, start, end).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordBillingLinkage(context.Background(), "u1", linkage)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCustomerIDUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveCustomerID(context.Background(), "ghost", "ctm_1")

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "ghost")

	assert.ErrorIs(t, err, core.ErrNotFound)
}
