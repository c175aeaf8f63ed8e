package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/orgball2608/storyreel/internal/feed"
	"github.com/orgball2608/storyreel/internal/httpserver"
	"github.com/orgball2608/storyreel/internal/migrations"
	"github.com/orgball2608/storyreel/internal/preload"
	repositories "github.com/orgball2608/storyreel/internal/repositories/fx"
	"github.com/orgball2608/storyreel/internal/telegram/telegramimpl"
	"github.com/orgball2608/storyreel/internal/viewer"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"github.com/orgball2608/storyreel/pkg/pgx"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		telegramimpl.New,
	),
	repositories.Module,
	preload.Module,
	viewer.Module,
	fx.Invoke(migrate),
	feed.Module,
	httpserver.Module,
)

// migrate brings the schema up to date before the listing is first loaded.
func migrate(lc fx.Lifecycle, cfg *config.Config, log logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			db, err := sql.Open("postgres", cfg.GetDSN())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Up(ctx, db); err != nil {
				log.Error("Failed to apply migrations", "error", err)
				return err
			}
			log.Info("Migrations applied")
			return nil
		},
	})
}
