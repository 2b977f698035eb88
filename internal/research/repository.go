// AngelaMos | 2026
// repository.go

package research

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vedomo/vedomo-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, pub *Publication) error
	GetByID(ctx context.Context, id string) (*Publication, error)
	GetBySlug(ctx context.Context, slug, locale string) (*Publication, error)
	Update(ctx context.Context, pub *Publication) error
	SoftDelete(ctx context.Context, id string) error
	List(
		ctx context.Context,
		params ListPublicationsParams,
	) ([]Publication, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const publicationColumns = `id, slug, locale, title, summary, body,
	       access_level, published_at, created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, pub *Publication) error {
	query := `
		INSERT INTO publications
			(id, slug, locale, title, summary, body, access_level, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, pub, query,
		pub.ID,
		pub.Slug,
		pub.Locale,
		pub.Title,
		pub.Summary,
		pub.Body,
		pub.AccessLevel,
		pub.PublishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create publication: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create publication: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Publication, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM publications
		WHERE id = $1 AND deleted_at IS NULL`, publicationColumns)

	var pub Publication
	err := r.db.GetContext(ctx, &pub, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get publication: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get publication: %w", err)
	}

	return &pub, nil
}

func (r *repository) GetBySlug(
	ctx context.Context,
	slug, locale string,
) (*Publication, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM publications
		WHERE slug = $1 AND locale = $2 AND deleted_at IS NULL`,
		publicationColumns)

	var pub Publication
	err := r.db.GetContext(ctx, &pub, query, slug, locale)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get publication by slug: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get publication by slug: %w", err)
	}

	return &pub, nil
}

func (r *repository) Update(ctx context.Context, pub *Publication) error {
	query := `
		UPDATE publications
		SET title = $2, summary = $3, body = $4, access_level = $5,
		    published_at = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &pub.UpdatedAt, query,
		pub.ID,
		pub.Title,
		pub.Summary,
		pub.Body,
		pub.AccessLevel,
		pub.PublishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update publication: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update publication: %w", err)
	}

	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE publications
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete publication: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListPublicationsParams,
) ([]Publication, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if !params.IncludeDrafts {
		conditions = append(conditions,
			"published_at IS NOT NULL AND published_at <= NOW()")
	}

	if params.Locale != "" {
		conditions = append(conditions, fmt.Sprintf("locale = $%d", argIdx))
		args = append(args, params.Locale)
		argIdx++
	}

	if params.AccessLevel != "" {
		conditions = append(conditions, fmt.Sprintf("access_level = $%d", argIdx))
		args = append(args, params.AccessLevel)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM publications WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count publications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM publications
		WHERE %s
		ORDER BY published_at DESC NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d`,
		publicationColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var pubs []Publication
	if err := r.db.SelectContext(ctx, &pubs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list publications: %w", err)
	}

	return pubs, total, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
