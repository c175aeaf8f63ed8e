package preload

import (
	"context"
	"net/http"

	"github.com/orgball2608/storyreel/internal/viewer"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Config *config.Config
	Logger logger.Logger
}

func New(opts Opts) (*HTTPPreloader, error) {
	p, err := NewHTTPPreloader(
		&http.Client{Timeout: opts.Config.Preload.Timeout},
		Settings{
			Workers:            opts.Config.Preload.Workers,
			Timeout:            opts.Config.Preload.Timeout,
			VideoPrefetchBytes: opts.Config.Preload.VideoPrefetchBytes,
			RememberFor:        opts.Config.Preload.RememberFor,
		},
		opts.Logger,
	)
	if err != nil {
		return nil, err
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			p.Release()
			return nil
		},
	})
	return p, nil
}

var Module = fx.Provide(
	fx.Annotate(
		New,
		fx.As(new(viewer.Preloader)),
	),
)
