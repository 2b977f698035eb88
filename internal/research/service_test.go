// AngelaMos | 2026
// service_test.go

package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

type fakeRepo struct {
	mu   sync.Mutex
	byID map[string]*Publication
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*Publication)}
}

func (f *fakeRepo) Create(_ context.Context, pub *Publication) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.byID {
		if existing.Slug == pub.Slug && existing.Locale == pub.Locale {
			return fmt.Errorf("create publication: %w", core.ErrDuplicateKey)
		}
	}

	stored := *pub
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.byID[pub.ID] = &stored
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pub, ok := f.byID[id]
	if !ok || pub.DeletedAt != nil {
		return nil, fmt.Errorf("get publication: %w", core.ErrNotFound)
	}
	copied := *pub
	return &copied, nil
}

func (f *fakeRepo) GetBySlug(
	_ context.Context,
	slug, locale string,
) (*Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, pub := range f.byID {
		if pub.Slug == slug && pub.Locale == locale && pub.DeletedAt == nil {
			copied := *pub
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get publication by slug: %w", core.ErrNotFound)
}

func (f *fakeRepo) Update(_ context.Context, pub *Publication) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byID[pub.ID]; !ok {
		return fmt.Errorf("update publication: %w", core.ErrNotFound)
	}
	stored := *pub
	stored.UpdatedAt = time.Now()
	f.byID[pub.ID] = &stored
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pub, ok := f.byID[id]
	if !ok || pub.DeletedAt != nil {
		return fmt.Errorf("delete publication: %w", core.ErrNotFound)
	}
	now := time.Now()
	pub.DeletedAt = &now
	return nil
}

func (f *fakeRepo) List(
	_ context.Context,
	params ListPublicationsParams,
) ([]Publication, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pubs []Publication
	for _, pub := range f.byID {
		if pub.DeletedAt != nil {
			continue
		}
		if !params.IncludeDrafts && !pub.IsPublished() {
			continue
		}
		if params.Locale != "" && pub.Locale != params.Locale {
			continue
		}
		pubs = append(pubs, *pub)
	}
	return pubs, len(pubs), nil
}

func seedPublication(
	t *testing.T,
	repo *fakeRepo,
	slug, locale, level, body string,
	published bool,
) *Publication {
	t.Helper()

	pub := &Publication{
		ID:          "pub_" + slug + "_" + locale,
		Slug:        slug,
		Locale:      locale,
		Title:       "Обзор рынка",
		Summary:     "summary",
		Body:        body,
		AccessLevel: level,
	}
	if published {
		at := time.Now().Add(-time.Hour)
		pub.PublishedAt = &at
	}

	require.NoError(t, repo.Create(context.Background(), pub))
	return pub
}

func TestViewLocksExtendedContentForStandard(t *testing.T) {
	repo := newFakeRepo()
	body := strings.Repeat("в", 500)
	seedPublication(t, repo, "q3-review", "ru", "extended", body, true)
	svc := NewService(repo, 350, "en")

	resp, err := svc.View(
		context.Background(), "q3-review", "ru", entitlement.RoleStandard)

	require.NoError(t, err)
	assert.True(t, resp.Locked)
	assert.Equal(t, "premium", resp.RequiredRole)
	assert.LessOrEqual(
		t,
		utf8.RuneCountInString(resp.Body),
		350+utf8.RuneCountInString(entitlement.TruncationMarker),
	)
	assert.True(t, strings.HasSuffix(resp.Body, entitlement.TruncationMarker))
}

func TestViewServesFullBodyToPremium(t *testing.T) {
	repo := newFakeRepo()
	body := strings.Repeat("в", 500)
	seedPublication(t, repo, "q3-review", "ru", "extended", body, true)
	svc := NewService(repo, 350, "en")

	resp, err := svc.View(
		context.Background(), "q3-review", "ru", entitlement.RolePremium)

	require.NoError(t, err)
	assert.False(t, resp.Locked)
	assert.Empty(t, resp.RequiredRole)
	assert.Equal(t, body, resp.Body)
}

func TestViewPreviewLevelOpenToAnonymous(t *testing.T) {
	repo := newFakeRepo()
	seedPublication(t, repo, "free-note", "en", "preview", "short note", true)
	svc := NewService(repo, 350, "en")

	resp, err := svc.View(
		context.Background(), "free-note", "en", entitlement.RoleAnonymous)

	require.NoError(t, err)
	assert.False(t, resp.Locked)
	assert.Equal(t, "short note", resp.Body)
}

func TestViewStandardLevelLockedForAnonymous(t *testing.T) {
	repo := newFakeRepo()
	body := strings.Repeat("market analysis sentence. ", 40)
	seedPublication(t, repo, "std-report", "en", "standard", body, true)
	svc := NewService(repo, 350, "en")

	resp, err := svc.View(
		context.Background(), "std-report", "en", entitlement.RoleAnonymous)

	require.NoError(t, err)
	assert.True(t, resp.Locked)
	assert.Equal(t, "standard", resp.RequiredRole)
	assert.Less(t, len(resp.Body), len(body))
}

func TestViewDraftHiddenFromEveryoneButAdmin(t *testing.T) {
	repo := newFakeRepo()
	seedPublication(t, repo, "draft", "en", "standard", "unreleased", false)
	svc := NewService(repo, 350, "en")
	ctx := context.Background()

	for _, role := range []entitlement.Role{
		entitlement.RoleAnonymous,
		entitlement.RoleRegistered,
		entitlement.RolePremium,
	} {
		_, err := svc.View(ctx, "draft", "en", role)
		assert.ErrorIs(t, err, core.ErrNotFound, "role=%s", role)
	}

	resp, err := svc.View(ctx, "draft", "en", entitlement.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "unreleased", resp.Body)
}

func TestViewDefaultsLocale(t *testing.T) {
	repo := newFakeRepo()
	seedPublication(t, repo, "note", "en", "preview", "english body", true)
	svc := NewService(repo, 350, "en")

	resp, err := svc.View(context.Background(), "note", "", entitlement.RoleAnonymous)

	require.NoError(t, err)
	assert.Equal(t, "en", resp.Locale)
}

func TestUpdateAccessLevelFrozenOncePublished(t *testing.T) {
	repo := newFakeRepo()
	pub := seedPublication(t, repo, "live", "en", "extended", "body", true)
	svc := NewService(repo, 350, "en")

	level := "preview"
	_, err := svc.Update(
		context.Background(), pub.ID, UpdatePublicationRequest{AccessLevel: &level})

	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpdateAccessLevelAllowedOnDraft(t *testing.T) {
	repo := newFakeRepo()
	pub := seedPublication(t, repo, "draft", "en", "extended", "body", false)
	svc := NewService(repo, 350, "en")

	level := "standard"
	updated, err := svc.Update(
		context.Background(), pub.ID, UpdatePublicationRequest{AccessLevel: &level})

	require.NoError(t, err)
	assert.Equal(t, "standard", updated.AccessLevel)
}

func TestPublishIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	pub := seedPublication(t, repo, "draft", "en", "standard", "body", false)
	svc := NewService(repo, 350, "en")
	ctx := context.Background()

	first, err := svc.Publish(ctx, pub.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PublishedAt)

	second, err := svc.Publish(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PublishedAt.Unix(), second.PublishedAt.Unix())
}

func TestListPublishedExcludesDrafts(t *testing.T) {
	repo := newFakeRepo()
	seedPublication(t, repo, "live", "en", "preview", "a", true)
	seedPublication(t, repo, "draft", "en", "preview", "b", false)
	svc := NewService(repo, 350, "en")

	pubs, total, err := svc.ListPublished(
		context.Background(), ListPublicationsParams{})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, pubs, 1)
	assert.Equal(t, "live", pubs[0].Slug)

	all, _, err := svc.ListAll(context.Background(), ListPublicationsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateDuplicateSlugLocale(t *testing.T) {
	repo := newFakeRepo()
	seedPublication(t, repo, "note", "en", "preview", "a", true)
	svc := NewService(repo, 350, "en")

	_, err := svc.Create(context.Background(), CreatePublicationRequest{
		Slug:        "note",
		Locale:      "en",
		Title:       "t",
		Body:        "b",
		AccessLevel: "preview",
	})

	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}
