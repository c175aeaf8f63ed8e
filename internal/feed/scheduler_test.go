package feed

import (
	"context"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/orgball2608/storyreel/pkg/config"
	"github.com/orgball2608/storyreel/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RegistersJobs(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{}
	cfg.Feed.RefreshInterval = time.Minute
	cfg.Feed.CleanupHour = 3
	cfg.Feed.Timezone = "Not/AZone"
	cfg.Viewer.SessionTTL = time.Hour

	s, err := NewScheduler(context.Background(), f.svc, f.viewer, cfg, logger.NewNop(), gocron.WithClock(f.clock))
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	var names []string
	for _, j := range s.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{"refresh-stories", "cleanup-stories", "evict-idle-sessions"}, names)
}
