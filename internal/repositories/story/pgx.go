package story

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/orgball2608/storyreel/internal/repositories"
	"github.com/orgball2608/storyreel/pkg/logger"
)

const table = "stories"

var columns = []string{
	"id",
	"user_id",
	"user_name",
	"user_avatar",
	"media_url",
	"media_type",
	"title",
	"content",
	"text_color",
	"text_size",
	"text_align",
	"created_at",
	"expires_at",
}

type PgxRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pool:   pool,
		logger: logger.WithComponent("StoryRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func (r *PgxRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Story, error) {
	query, args, err := listActiveQuery(now).ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active stories: %w", err)
	}
	defer rows.Close()

	var stories []domain.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		if !s.MediaKind.Valid() {
			r.logger.Warn("Skipping story with unknown media type", "story_id", s.ID, "media_type", s.MediaKind)
			continue
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating story rows: %w", err)
	}

	return stories, nil
}

func (r *PgxRepository) GetByID(ctx context.Context, id string) (*domain.Story, error) {
	query, args, err := repositories.SqBuilder.
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	s, err := scanStory(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get story by id: %w", err)
	}

	return &s, nil
}

func (r *PgxRepository) Create(ctx context.Context, s domain.Story) error {
	query, args, err := insertQuery(s).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.Join(err, ErrCannotCreate)
		}
		return fmt.Errorf("failed to create story: %w", err)
	}

	r.logger.Debug("Story stored", "story_id", s.ID, "user_id", s.UserID)
	return nil
}

func (r *PgxRepository) DeleteByID(ctx context.Context, id string) error {
	query, args, err := repositories.SqBuilder.
		Delete(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PgxRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := repositories.SqBuilder.
		Delete(table).
		Where(sq.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired stories: %w", err)
	}

	return result.RowsAffected(), nil
}

func listActiveQuery(now time.Time) sq.SelectBuilder {
	return repositories.SqBuilder.
		Select(columns...).
		From(table).
		Where(sq.Gt{"expires_at": now}).
		OrderBy("created_at ASC", "id ASC")
}

func insertQuery(s domain.Story) sq.InsertBuilder {
	return repositories.SqBuilder.
		Insert(table).
		Columns(columns...).
		Values(
			s.ID,
			s.UserID,
			s.UserName,
			s.UserAvatar,
			s.MediaURL,
			string(s.MediaKind),
			s.Title,
			s.Content,
			s.TextStyle.Color,
			s.TextStyle.Size,
			s.TextStyle.Align,
			s.CreatedAt,
			s.ExpiresAt,
		)
}

func scanStory(row pgx.Row) (domain.Story, error) {
	var (
		s    domain.Story
		kind string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.UserName,
		&s.UserAvatar,
		&s.MediaURL,
		&kind,
		&s.Title,
		&s.Content,
		&s.TextStyle.Color,
		&s.TextStyle.Size,
		&s.TextStyle.Align,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	s.MediaKind = domain.MediaKind(kind)
	return s, err
}
