package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"announcements/internal/domain"

	"github.com/lib/pq"
)

const (
	pqForeignKeyViolation = "23503"

	dismissalUserFK = "announcement_dismissals_user_id_fkey"

	announcementColumns = `a.id, a.title, a.content, a.creator_id, a.created_at, a.updated_at,
		a.site_wide, a.members_only, a.start_date, a.expiration_date, a.is_dismissable`
)

type announcementRepository struct {
	DB *sql.DB
}

// NewAnnouncementRepository returns a domain.AnnouncementRepository implemented with Postgres.
func NewAnnouncementRepository(db *sql.DB) domain.AnnouncementRepository {
	return &announcementRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row rowScanner) (*domain.Announcement, error) {
	a := &domain.Announcement{}
	var startNull, expirationNull sql.NullTime
	if err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.CreatorID, &a.CreatedAt, &a.UpdatedAt,
		&a.SiteWide, &a.MembersOnly, &startNull, &expirationNull, &a.IsDismissable,
	); err != nil {
		return nil, err
	}
	if startNull.Valid {
		a.StartDate = &startNull.Time
	}
	if expirationNull.Valid {
		a.ExpirationDate = &expirationNull.Time
	}
	return a, nil
}

func scanAnnouncements(rows *sql.Rows) ([]*domain.Announcement, error) {
	defer rows.Close()
	out := make([]*domain.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// buildCurrentQuery composes the current-announcements query. Clauses are only added
// for the filters that are set; the time window is always applied.
func buildCurrentQuery(f domain.CurrentFilter) (string, []any) {
	var where []string
	args := []any{}
	n := 1
	if f.SiteWide {
		where = append(where, "a.site_wide = TRUE")
	}
	if len(f.Exclude) > 0 {
		where = append(where, fmt.Sprintf("NOT (a.id::text = ANY($%d))", n))
		args = append(args, pq.Array(f.Exclude))
		n++
	}
	if f.ExcludeForUser != "" {
		where = append(where, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM announcement_dismissals d WHERE d.announcement_id = a.id AND d.user_id = $%d)", n))
		args = append(args, f.ExcludeForUser)
		n++
	}
	if !f.ForMembers {
		where = append(where, "a.members_only = FALSE")
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	where = append(where,
		fmt.Sprintf("(a.start_date IS NULL OR a.start_date <= $%d)", n),
		fmt.Sprintf("(a.expiration_date IS NULL OR a.expiration_date >= $%d)", n),
	)
	args = append(args, now)

	query := fmt.Sprintf(`
		SELECT %s
		FROM announcements a
		WHERE %s
		ORDER BY a.created_at DESC, a.id DESC
	`, announcementColumns, strings.Join(where, "\n		  AND "))
	return query, args
}

func (r *announcementRepository) Current(ctx context.Context, filter domain.CurrentFilter) ([]*domain.Announcement, error) {
	query, args := buildCurrentQuery(filter)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAnnouncements(rows)
}

func (r *announcementRepository) GetByID(ctx context.Context, id string) (*domain.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements a WHERE a.id = $1`
	a, err := scanAnnouncement(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *announcementRepository) Create(ctx context.Context, a *domain.Announcement) error {
	query := `
		INSERT INTO announcements (title, content, creator_id, created_at, updated_at,
			site_wide, members_only, start_date, expiration_date, is_dismissable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		a.Title, a.Content, a.CreatorID, a.CreatedAt, a.UpdatedAt,
		a.SiteWide, a.MembersOnly, nullTime(a.StartDate), nullTime(a.ExpirationDate), a.IsDismissable,
	).Scan(&a.ID)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == pqForeignKeyViolation {
			return fmt.Errorf("creator %s: %w", a.CreatorID, domain.ErrUserNotFound)
		}
		return err
	}
	return nil
}

func (r *announcementRepository) Update(ctx context.Context, a *domain.Announcement) error {
	query := `
		UPDATE announcements
		SET title = $2, content = $3, site_wide = $4, members_only = $5,
			start_date = $6, expiration_date = $7, is_dismissable = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		a.ID, a.Title, a.Content, a.SiteWide, a.MembersOnly,
		nullTime(a.StartDate), nullTime(a.ExpirationDate), a.IsDismissable, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *announcementRepository) AddDismissal(ctx context.Context, announcementID, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO announcement_dismissals (announcement_id, user_id) VALUES ($1, $2) ON CONFLICT (announcement_id, user_id) DO NOTHING`,
		announcementID, userID)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == pqForeignKeyViolation {
			if perr.Constraint == dismissalUserFK {
				return fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
			}
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *announcementRepository) HasDismissed(ctx context.Context, announcementID, userID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM announcement_dismissals WHERE announcement_id = $1 AND user_id = $2)`,
		announcementID, userID).Scan(&exists)
	return exists, err
}

func (r *announcementRepository) List(ctx context.Context, params domain.PaginationParams, membersOnly *bool) ([]*domain.Announcement, error) {
	var where string
	args := []any{}
	n := 1
	if membersOnly != nil {
		where = fmt.Sprintf("WHERE a.members_only = $%d", n)
		args = append(args, *membersOnly)
		n++
	}
	limit := ""
	if l := params.Limit(); l > 0 {
		limit = fmt.Sprintf("LIMIT $%d OFFSET $%d", n, n+1)
		args = append(args, l, params.Offset())
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM announcements a
		%s
		ORDER BY a.created_at DESC, a.id DESC
		%s
	`, announcementColumns, where, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAnnouncements(rows)
}

func (r *announcementRepository) Count(ctx context.Context, membersOnly *bool) (int, error) {
	var total int
	var err error
	if membersOnly != nil {
		err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE members_only = $1`, *membersOnly).Scan(&total)
	} else {
		err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements`).Scan(&total)
	}
	return total, err
}
