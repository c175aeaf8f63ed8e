package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT" env-default:"5432"`
		Host    string `env:"POSTGRES_HOST" env-default:"localhost"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Telegram struct {
		Token     string `env:"TELEGRAM_TOKEN"`
		AdminChat int64  `env:"TELEGRAM_ADMIN_CHAT"`
	}
	Viewer struct {
		DefaultDuration     time.Duration `env:"VIEWER_DEFAULT_DURATION" env-default:"5s"`
		FrameInterval       time.Duration `env:"VIEWER_FRAME_INTERVAL" env-default:"16ms"`
		SessionTTL          time.Duration `env:"VIEWER_SESSION_TTL" env-default:"30m"`
		PlaceholderMediaURL string        `env:"VIEWER_PLACEHOLDER_MEDIA_URL" env-default:"/static/story-placeholder.png"`
	}
	Preload struct {
		Workers            int           `env:"PRELOAD_WORKERS" env-default:"8"`
		Timeout            time.Duration `env:"PRELOAD_TIMEOUT" env-default:"10s"`
		VideoPrefetchBytes int64         `env:"PRELOAD_VIDEO_PREFETCH_BYTES" env-default:"1048576"`
		RememberFor        time.Duration `env:"PRELOAD_REMEMBER_FOR" env-default:"2m"`
	}
	Feed struct {
		RefreshInterval time.Duration `env:"FEED_REFRESH_INTERVAL" env-default:"1m"`
		StoryLifetime   time.Duration `env:"FEED_STORY_LIFETIME" env-default:"24h"`
		CleanupHour     uint          `env:"FEED_CLEANUP_HOUR" env-default:"3"`
		Timezone        string        `env:"FEED_TIMEZONE" env-default:"Asia/Ho_Chi_Minh"`
	}
	RateLimit struct {
		Requests int           `env:"RATE_LIMIT_REQUESTS" env-default:"20"`
		Per      time.Duration `env:"RATE_LIMIT_PER" env-default:"1s"`
		Burst    int           `env:"RATE_LIMIT_BURST" env-default:"40"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

// GetDSN returns the postgres connection string in URL form.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}
