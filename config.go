package watchllm

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvConfig is the environment-variable surface mirroring the functional
// options, for services that configure the SDK from the process environment.
type EnvConfig struct {
	APIKey           string        `env:"WATCHLLM_API_KEY, required"`
	ProjectID        string        `env:"WATCHLLM_PROJECT_ID, required"`
	BaseURL          string        `env:"WATCHLLM_BASE_URL, default=https://api.watchllm.dev/v1"`
	Environment      string        `env:"WATCHLLM_ENVIRONMENT, default=development"`
	Release          string        `env:"WATCHLLM_RELEASE"`
	SampleRate       float64       `env:"WATCHLLM_SAMPLE_RATE, default=1.0"`
	RedactPII        bool          `env:"WATCHLLM_REDACT_PII, default=true"`
	RedactConfigPath string        `env:"WATCHLLM_REDACT_CONFIG"`
	BatchSize        int           `env:"WATCHLLM_BATCH_SIZE, default=10"`
	FlushInterval    time.Duration `env:"WATCHLLM_FLUSH_INTERVAL, default=5s"`
	QueueCapacity    int           `env:"WATCHLLM_QUEUE_CAPACITY, default=1000"`
	RequestTimeout   time.Duration `env:"WATCHLLM_REQUEST_TIMEOUT, default=30s"`
	MaxRetries       int           `env:"WATCHLLM_MAX_RETRIES, default=3"`
}

// Options maps the environment config to client options.
func (c EnvConfig) Options() []Option {
	return []Option{
		WithAPIKey(c.APIKey),
		WithProjectID(c.ProjectID),
		WithBaseURL(c.BaseURL),
		WithEnvironment(c.Environment),
		WithRelease(c.Release),
		WithSampleRate(c.SampleRate),
		WithRedactPII(c.RedactPII),
		WithRedactConfig(c.RedactConfigPath),
		WithBatchSize(c.BatchSize),
		WithFlushInterval(c.FlushInterval),
		WithQueueCapacity(c.QueueCapacity),
		WithRequestTimeout(c.RequestTimeout),
		WithMaxRetries(c.MaxRetries),
	}
}

// FromEnv builds a Client from WATCHLLM_* environment variables. Extra
// options are applied after the environment and may override it.
func FromEnv(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg EnvConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("watchllm: read environment: %w", err)
	}
	return New(ctx, append(cfg.Options(), opts...)...)
}
