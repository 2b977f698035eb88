// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vedomo/vedomo-api/internal/auth"
	"github.com/vedomo/vedomo-api/internal/billing"
	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Create registers a new account. Everyone starts as registered; subscriber
// roles are only ever granted through the billing pipeline or by an admin.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name, locale string,
) (*auth.UserInfo, error) {
	if locale != LocaleRU {
		locale = LocaleEN
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		Locale:       locale,
		Role:         string(entitlement.RoleRegistered),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if req.Locale != nil {
		user.Locale = *req.Locale
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUserRole is the admin override path. Unlike the billing pipeline it
// may assign any role, including administrator, and it bypasses the
// out-of-order guard on purpose. The write is a single statement so it
// never round-trips the role through a stale read.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	r := entitlement.Role(role)
	if !r.Valid() || r == entitlement.RoleAnonymous {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if err := s.repo.SetRole(ctx, id, r); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.IsAdmin() {
		return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
	}

	return nil
}

// GetRole reports the user's current entitlement role.
func (s *Service) GetRole(
	ctx context.Context,
	userID string,
) (entitlement.Role, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	return user.EntitlementRole(), nil
}

// SetRoleFromBilling applies a billing-driven role transition through the
// repository's guarded single-statement update.
func (s *Service) SetRoleFromBilling(
	ctx context.Context,
	userID string,
	role entitlement.Role,
	occurredAt time.Time,
) error {
	return s.repo.SetRoleFromBilling(ctx, userID, role, occurredAt)
}

func (s *Service) RecordBillingLinkage(
	ctx context.Context,
	userID string,
	l billing.Linkage,
) error {
	return s.repo.RecordBillingLinkage(ctx, userID, l)
}

func (s *Service) GetBillingProfile(
	ctx context.Context,
	userID string,
) (*billing.BillingProfile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &billing.BillingProfile{
		Email: user.Email,
		Role:  user.EntitlementRole(),
	}
	if user.CustomerID != nil {
		profile.CustomerID = *user.CustomerID
	}

	return profile, nil
}

func (s *Service) SaveCustomerID(
	ctx context.Context,
	userID, customerID string,
) error {
	return s.repo.SaveCustomerID(ctx, userID, customerID)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Locale:       u.Locale,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		TokenVersion: u.TokenVersion,
	}
}

var (
	_ auth.UserProvider    = (*Service)(nil)
	_ billing.Store        = (*Service)(nil)
	_ billing.ProfileStore = (*Service)(nil)
)
