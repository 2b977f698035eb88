// AngelaMos | 2026
// dto.go

package research

import (
	"time"
)

type CreatePublicationRequest struct {
	Slug        string `json:"slug"         validate:"required,min=1,max=191"`
	Locale      string `json:"locale"       validate:"required,oneof=en ru"`
	Title       string `json:"title"        validate:"required,min=1,max=300"`
	Summary     string `json:"summary"      validate:"max=1000"`
	Body        string `json:"body"         validate:"required"`
	AccessLevel string `json:"access_level" validate:"required,oneof=preview standard extended"`
}

type UpdatePublicationRequest struct {
	Title       *string `json:"title,omitempty"        validate:"omitempty,min=1,max=300"`
	Summary     *string `json:"summary,omitempty"      validate:"omitempty,max=1000"`
	Body        *string `json:"body,omitempty"`
	AccessLevel *string `json:"access_level,omitempty" validate:"omitempty,oneof=preview standard extended"`
}

// PublicationResponse is the gated read model. Body is either the full text
// or a truncated preview; Locked tells the client which one it got.
type PublicationResponse struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Locale       string     `json:"locale"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary,omitempty"`
	Body         string     `json:"body"`
	AccessLevel  string     `json:"access_level"`
	Locked       bool       `json:"locked"`
	RequiredRole string     `json:"required_role,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

// PublicationSummary is the list item: never carries the body, so listing is
// not a paywall bypass.
type PublicationSummary struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Locale      string     `json:"locale"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	AccessLevel string     `json:"access_level"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type ListPublicationsParams struct {
	Page        int
	PageSize    int
	Locale      string
	AccessLevel string
	// IncludeDrafts is only ever set by the admin surface.
	IncludeDrafts bool
}

func (p *ListPublicationsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListPublicationsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToPublicationSummary(p *Publication) PublicationSummary {
	return PublicationSummary{
		ID:          p.ID,
		Slug:        p.Slug,
		Locale:      p.Locale,
		Title:       p.Title,
		Summary:     p.Summary,
		AccessLevel: p.AccessLevel,
		PublishedAt: p.PublishedAt,
	}
}

func ToPublicationSummaryList(pubs []Publication) []PublicationSummary {
	summaries := make([]PublicationSummary, 0, len(pubs))
	for _, p := range pubs {
		summaries = append(summaries, ToPublicationSummary(&p))
	}
	return summaries
}
