// AngelaMos | 2026
// checkout.go

package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// Provider is the narrow surface of the payment provider this subsystem
// needs: stable customer identity and hosted checkout sessions. It is
// injected explicitly so tests run against doubles and no global client
// state leaks between requests.
type Provider interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(
		ctx context.Context,
		session CheckoutSession,
	) (string, error)
}

type CheckoutSession struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// BillingProfile is what checkout needs to know about a user.
type BillingProfile struct {
	Email      string
	CustomerID string
	Role       entitlement.Role
}

// ProfileStore reads and updates the user's provider-customer linkage.
type ProfileStore interface {
	GetBillingProfile(ctx context.Context, userID string) (*BillingProfile, error)
	SaveCustomerID(ctx context.Context, userID, customerID string) error
}

// CheckoutService opens hosted checkout sessions. It mutates no local
// subscription state: the eventual role change arrives asynchronously via
// the webhook handler.
type CheckoutService struct {
	provider   Provider
	catalog    *Catalog
	profiles   ProfileStore
	successURL string
	cancelURL  string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewCheckoutService(
	provider Provider,
	catalog *Catalog,
	profiles ProfileStore,
	successURL, cancelURL string,
	logger *slog.Logger,
) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}

	return &CheckoutService{
		provider:   provider,
		catalog:    catalog,
		profiles:   profiles,
		successURL: successURL,
		cancelURL:  cancelURL,
		timeout:    15 * time.Second,
		logger:     logger,
	}
}

// CreateCheckout validates the product, ensures a single provider customer
// for the user, and returns an opaque redirect URL. Bad input fails before
// any network call; upstream failures surface as retryable errors.
func (s *CheckoutService) CreateCheckout(
	ctx context.Context,
	userID, productID string,
) (string, error) {
	product, ok := s.catalog.Resolve(productID)
	if !ok {
		return "", fmt.Errorf(
			"create checkout: unknown product %q: %w",
			productID, core.ErrInvalidInput,
		)
	}

	profile, err := s.profiles.GetBillingProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	customerID, err := s.ensureCustomer(ctx, userID, profile)
	if err != nil {
		return "", err
	}

	url, err := s.provider.CreateCheckoutSession(ctx, CheckoutSession{
		CustomerID: customerID,
		PriceID:    product.PriceID,
		UserID:     userID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	return url, nil
}

// ensureCustomer returns the user's provider customer id, creating one only
// when neither our record nor the provider has it. The provider dedups by
// verified email, so a crash between create and save cannot fork identities.
func (s *CheckoutService) ensureCustomer(
	ctx context.Context,
	userID string,
	profile *BillingProfile,
) (string, error) {
	if profile.CustomerID != "" {
		return profile.CustomerID, nil
	}

	customerID, err := s.provider.FindCustomerByEmail(ctx, profile.Email)
	if err != nil {
		return "", fmt.Errorf("find customer: %w", err)
	}

	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, profile.Email, userID)
		if err != nil {
			return "", fmt.Errorf("create customer: %w", err)
		}
	}

	if saveErr := s.profiles.SaveCustomerID(ctx, userID, customerID); saveErr != nil {
		s.logger.Warn("save provider customer id failed",
			"user_id", userID,
			"error", saveErr,
		)
	}

	return customerID, nil
}
