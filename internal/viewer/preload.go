package viewer

import "github.com/orgball2608/storyreel/internal/domain"

// Preloader warms the media of an upcoming story. Implementations are best
// effort and must not block the caller.
type Preloader interface {
	Preload(url string, kind domain.MediaKind)
}

type NopPreloader struct{}

func (NopPreloader) Preload(string, domain.MediaKind) {}
