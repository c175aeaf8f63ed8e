package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/orgball2608/storyreel/internal/repositories/story"
	"github.com/orgball2608/storyreel/internal/telegram"
	"github.com/orgball2608/storyreel/internal/viewer"
	"github.com/orgball2608/storyreel/pkg/config"
	apperrors "github.com/orgball2608/storyreel/pkg/errors"
	"github.com/orgball2608/storyreel/pkg/logger"
	"github.com/orgball2608/storyreel/pkg/retry"
	"go.uber.org/fx"
)

const loadFailedNotice = "Could not load stories. Showing what we already have."

type PublishInput struct {
	UserID     string           `json:"userId" validate:"required,max=64"`
	UserName   string           `json:"userName" validate:"required,max=64"`
	UserAvatar string           `json:"userAvatar" validate:"omitempty,url"`
	MediaURL   string           `json:"mediaUrl" validate:"required,url"`
	MediaKind  domain.MediaKind `json:"mediaType" validate:"required,oneof=image video"`
	Title      string           `json:"title" validate:"max=120"`
	Content    string           `json:"content" validate:"max=2000"`
	TextStyle  domain.TextStyle `json:"textStyle"`
}

type Opts struct {
	fx.In

	Repo     story.Repository
	Viewer   *viewer.Manager
	Notifier telegram.Notifier
	Logger   logger.Logger
	Config   *config.Config
	Clock    clockwork.Clock `optional:"true"`
}

// Service is the content listing side of the viewer: it loads active stories
// and hands every fresh listing to the viewer manager.
type Service struct {
	repo     story.Repository
	viewer   *viewer.Manager
	notifier telegram.Notifier
	log      logger.Logger
	clock    clockwork.Clock
	validate *validator.Validate
	retry    retry.Config
	lifetime time.Duration
}

func New(opts Opts) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:     opts.Repo,
		viewer:   opts.Viewer,
		notifier: opts.Notifier,
		log:      opts.Logger.WithComponent("feed"),
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		retry:    retry.DefaultConfig(),
		lifetime: opts.Config.Feed.StoryLifetime,
	}
}

// Refresh reloads the listing. On failure the previous listing stays in place
// and viewers get a transient notice.
func (s *Service) Refresh(ctx context.Context) error {
	var stories []domain.Story
	err := retry.Do(ctx, s.log, "list active stories", func() error {
		var err error
		stories, err = s.repo.ListActive(ctx, s.clock.Now())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return retry.Permanent(err)
		}
		return err
	}, s.retry)
	if err != nil {
		s.log.Error("Failed to load stories", "error", err)
		s.viewer.Notify(loadFailedNotice)
		if nerr := s.notifier.Notify(ctx, fmt.Sprintf("Story listing failed: %v", err)); nerr != nil {
			s.log.Warn("Failed to notify operators", "error", nerr)
		}
		return fmt.Errorf("failed to refresh stories: %w", err)
	}

	s.viewer.SetStories(stories)
	s.log.Debug("Stories refreshed", "count", len(stories))
	return nil
}

func (s *Service) Groups() []domain.AuthorGroup {
	return s.viewer.Groups().Slice()
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Story, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return st, nil
}

func (s *Service) Publish(ctx context.Context, in PublishInput) (domain.Story, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Story{}, apperrors.WrapWithCode(apperrors.ErrInvalidInput, "invalid_story", err.Error())
	}

	now := s.clock.Now().UTC()
	st := domain.Story{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		UserName:   in.UserName,
		UserAvatar: in.UserAvatar,
		MediaURL:   in.MediaURL,
		MediaKind:  in.MediaKind,
		Title:      in.Title,
		Content:    in.Content,
		TextStyle:  in.TextStyle,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.lifetime),
	}

	if err := s.repo.Create(ctx, st); err != nil {
		return domain.Story{}, fmt.Errorf("failed to publish story: %w", err)
	}
	s.log.Info("Story published", "story_id", st.ID, "user_id", st.UserID, "kind", st.MediaKind)

	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("Story published but listing refresh failed", "story_id", st.ID, "error", err)
	}
	return st, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	s.log.Info("Story deleted", "story_id", id)
	return s.Refresh(ctx)
}

// Cleanup removes expired stories and refreshes the listing when any went away.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.repo.CleanupExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up stories: %w", err)
	}
	if n > 0 {
		if err := s.Refresh(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}
