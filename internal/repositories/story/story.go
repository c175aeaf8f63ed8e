package story

import (
	"context"
	"time"

	"github.com/orgball2608/storyreel/internal/domain"
	apperrors "github.com/orgball2608/storyreel/pkg/errors"
)

var (
	ErrNotFound     = apperrors.NewKind(apperrors.ErrNotFound, "story_not_found", "story not found")
	ErrCannotCreate = apperrors.NewKind(apperrors.ErrConflict, "story_not_created", "error create story")
)

//go:generate go run go.uber.org/mock/mockgen -source=story.go -destination=mocks/mock.go

type Repository interface {
	// ListActive returns stories not yet expired at now, oldest first.
	ListActive(ctx context.Context, now time.Time) ([]domain.Story, error)
	GetByID(ctx context.Context, id string) (*domain.Story, error)
	Create(ctx context.Context, story domain.Story) error
	DeleteByID(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}
