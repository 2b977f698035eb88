// AngelaMos | 2026
// entity.go

package research

import (
	"time"

	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// Publication is one market-research piece in one language. The same slug
// may exist once per locale; slug+locale is the lookup key.
type Publication struct {
	ID          string     `db:"id"`
	Slug        string     `db:"slug"`
	Locale      string     `db:"locale"`
	Title       string     `db:"title"`
	Summary     string     `db:"summary"`
	Body        string     `db:"body"`
	AccessLevel string     `db:"access_level"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

func (p *Publication) IsPublished() bool {
	return p.PublishedAt != nil && !p.PublishedAt.After(time.Now())
}

func (p *Publication) Level() entitlement.AccessLevel {
	return entitlement.AccessLevel(p.AccessLevel)
}
