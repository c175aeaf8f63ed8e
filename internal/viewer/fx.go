package viewer

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"go.uber.org/fx"
)

type ManagerOpts struct {
	fx.In
	LC fx.Lifecycle

	Config    *config.Config
	Logger    logger.Logger
	Preloader Preloader
	Clock     clockwork.Clock `optional:"true"`
}

func NewManagerFx(opts ManagerOpts) *Manager {
	m := NewManager(Options{
		Clock:               opts.Clock,
		DefaultDuration:     opts.Config.Viewer.DefaultDuration,
		FrameInterval:       opts.Config.Viewer.FrameInterval,
		PlaceholderMediaURL: opts.Config.Viewer.PlaceholderMediaURL,
		Preloader:           opts.Preloader,
		Logger:              opts.Logger,
	})

	opts.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Shutdown()
			return nil
		},
	})
	return m
}

var Module = fx.Provide(NewManagerFx)
