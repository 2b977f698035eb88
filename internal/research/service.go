// AngelaMos | 2026
// service.go

package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

type Service struct {
	repo          Repository
	previewBudget int
	defaultLocale string
}

func NewService(repo Repository, previewBudget int, defaultLocale string) *Service {
	if previewBudget <= 0 {
		previewBudget = entitlement.DefaultPreviewBudget
	}
	if defaultLocale == "" {
		defaultLocale = "en"
	}

	return &Service{
		repo:          repo,
		previewBudget: previewBudget,
		defaultLocale: defaultLocale,
	}
}

// View serves one publication through the paywall. The viewer role decides
// whether the body comes back whole or truncated; a preview is served to
// under-entitled viewers rather than an error, and drafts are invisible to
// everyone but admins.
func (s *Service) View(
	ctx context.Context,
	slug, locale string,
	role entitlement.Role,
) (*PublicationResponse, error) {
	if locale == "" {
		locale = s.defaultLocale
	}

	pub, err := s.repo.GetBySlug(ctx, slug, locale)
	if err != nil {
		return nil, err
	}

	if !pub.IsPublished() && role != entitlement.RoleAdmin {
		return nil, fmt.Errorf("view publication: %w", core.ErrNotFound)
	}

	result := entitlement.Evaluate(role, pub.Level(), pub.Body, s.previewBudget)

	return &PublicationResponse{
		ID:           pub.ID,
		Slug:         pub.Slug,
		Locale:       pub.Locale,
		Title:        pub.Title,
		Summary:      pub.Summary,
		Body:         result.Body,
		AccessLevel:  pub.AccessLevel,
		Locked:       result.Locked,
		RequiredRole: requiredRoleLabel(result),
		PublishedAt:  pub.PublishedAt,
	}, nil
}

func requiredRoleLabel(r entitlement.Result) string {
	if !r.Locked {
		return ""
	}
	return string(r.RequiredRole)
}

func (s *Service) ListPublished(
	ctx context.Context,
	params ListPublicationsParams,
) ([]Publication, int, error) {
	params.IncludeDrafts = false
	return s.repo.List(ctx, params)
}

func (s *Service) ListAll(
	ctx context.Context,
	params ListPublicationsParams,
) ([]Publication, int, error) {
	params.IncludeDrafts = true
	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, id string) (*Publication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(
	ctx context.Context,
	req CreatePublicationRequest,
) (*Publication, error) {
	pub := &Publication{
		ID:          uuid.New().String(),
		Slug:        req.Slug,
		Locale:      req.Locale,
		Title:       req.Title,
		Summary:     req.Summary,
		Body:        req.Body,
		AccessLevel: req.AccessLevel,
	}

	if err := s.repo.Create(ctx, pub); err != nil {
		return nil, err
	}

	return pub, nil
}

func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdatePublicationRequest,
) (*Publication, error) {
	pub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The access level is frozen once a publication is live; readers must be
	// able to rely on what a piece costs.
	if req.AccessLevel != nil && *req.AccessLevel != pub.AccessLevel &&
		pub.IsPublished() {
		return nil, fmt.Errorf(
			"update publication: access level is immutable once published: %w",
			core.ErrInvalidInput,
		)
	}

	if req.Title != nil {
		pub.Title = *req.Title
	}
	if req.Summary != nil {
		pub.Summary = *req.Summary
	}
	if req.Body != nil {
		pub.Body = *req.Body
	}
	if req.AccessLevel != nil {
		pub.AccessLevel = *req.AccessLevel
	}

	if err := s.repo.Update(ctx, pub); err != nil {
		return nil, err
	}

	return pub, nil
}

// Publish makes a draft live. Publishing an already-published piece is a
// no-op rather than an error.
func (s *Service) Publish(ctx context.Context, id string) (*Publication, error) {
	pub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if pub.PublishedAt == nil {
		now := time.Now().UTC()
		pub.PublishedAt = &now

		if err := s.repo.Update(ctx, pub); err != nil {
			return nil, err
		}
	}

	return pub, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}
