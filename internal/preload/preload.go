package preload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/orgball2608/storyreel/internal/viewer"
	"github.com/orgball2608/storyreel/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"github.com/patrickmn/go-cache"
)

type Settings struct {
	Workers            int
	Timeout            time.Duration
	VideoPrefetchBytes int64
	RememberFor        time.Duration
}

// HTTPPreloader warms upstream and CDN caches for the next story by fetching
// its media in the background. Images are read whole, videos only up to
// VideoPrefetchBytes. Nothing is reported back; failures are logged and
// dropped.
type HTTPPreloader struct {
	client   *http.Client
	pool     *ants.Pool
	recent   *cache.Cache
	settings Settings
	log      logger.Logger
}

var _ viewer.Preloader = (*HTTPPreloader)(nil)

func NewHTTPPreloader(client *http.Client, settings Settings, log logger.Logger) (*HTTPPreloader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}

	pool, err := ants.NewPool(settings.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create preload pool: %w", err)
	}

	return &HTTPPreloader{
		client:   client,
		pool:     pool,
		recent:   cache.New(settings.RememberFor, 2*settings.RememberFor),
		settings: settings,
		log:      log.WithComponent("preloader"),
	}, nil
}

// Preload queues a fetch of rawURL and returns immediately. URLs fetched
// within RememberFor are skipped.
func (p *HTTPPreloader) Preload(rawURL string, kind domain.MediaKind) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return
	}
	if _, found := p.recent.Get(rawURL); found {
		return
	}
	p.recent.SetDefault(rawURL, struct{}{})

	if err := p.pool.Submit(func() { p.fetch(rawURL, kind) }); err != nil {
		p.recent.Delete(rawURL)
		p.log.Debug("Preload dropped", "url", rawURL, "error", err)
	}
}

func (p *HTTPPreloader) Release() {
	p.pool.Release()
}

func (p *HTTPPreloader) fetch(rawURL string, kind domain.MediaKind) {
	ctx, cancel := context.WithTimeout(context.Background(), p.settings.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return
	}

	var body io.Reader
	if kind == domain.MediaVideo && p.settings.VideoPrefetchBytes > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", p.settings.VideoPrefetchBytes-1))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("Preload failed", "url", rawURL, "error", err)
		return
	}
	defer resp.Body.Close()

	body = resp.Body
	if kind == domain.MediaVideo && p.settings.VideoPrefetchBytes > 0 {
		body = io.LimitReader(resp.Body, p.settings.VideoPrefetchBytes)
	}
	n, _ := io.Copy(io.Discard, body)

	if resp.StatusCode >= http.StatusBadRequest {
		p.log.Debug("Preload got error status", "url", rawURL, "status", resp.StatusCode)
		return
	}
	p.log.Debug("Preloaded media", "url", rawURL, "kind", kind, "bytes", n)
}
