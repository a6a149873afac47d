package watchllm

import "time"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	apiKey           string
	projectID        string
	baseURL          string
	environment      string
	release          string
	sampleRate       float64
	redactPII        bool
	redactConfigPath string
	batchSize        int
	flushInterval    time.Duration
	queueCapacity    int
	requestTimeout   time.Duration
	maxRetries       int
	tick             time.Duration
	retryInterval    time.Duration
}

func defaultConfig() clientConfig {
	return clientConfig{
		baseURL:        "https://api.watchllm.dev/v1",
		environment:    "development",
		sampleRate:     1.0,
		redactPII:      true,
		batchSize:      10,
		flushInterval:  5 * time.Second,
		queueCapacity:  1000,
		requestTimeout: 30 * time.Second,
		maxRetries:     3,
	}
}

// WithAPIKey sets the collector API key. Required.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithProjectID sets the project every event is attributed to. Required.
func WithProjectID(id string) Option {
	return func(c *clientConfig) { c.projectID = id }
}

// WithBaseURL overrides the collector endpoint.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithEnvironment sets the env label stamped on every event.
func WithEnvironment(env string) Option {
	return func(c *clientConfig) { c.environment = env }
}

// WithRelease sets the default release label for events that do not carry
// their own.
func WithRelease(release string) Option {
	return func(c *clientConfig) { c.release = release }
}

// WithSampleRate sets the admission probability in [0, 1].
func WithSampleRate(rate float64) Option {
	return func(c *clientConfig) { c.sampleRate = rate }
}

// WithRedactPII toggles PII scrubbing of outgoing events.
func WithRedactPII(on bool) Option {
	return func(c *clientConfig) { c.redactPII = on }
}

// WithRedactConfig points at a YAML file of extra redaction patterns. The
// file is hot-reloaded on change.
func WithRedactConfig(path string) Option {
	return func(c *clientConfig) { c.redactConfigPath = path }
}

// WithBatchSize sets the queue depth that triggers an immediate flush.
func WithBatchSize(n int) Option {
	return func(c *clientConfig) { c.batchSize = n }
}

// WithFlushInterval sets the maximum time queued events wait before a flush.
func WithFlushInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.flushInterval = d }
}

// WithQueueCapacity bounds the in-memory event buffer.
func WithQueueCapacity(n int) Option {
	return func(c *clientConfig) { c.queueCapacity = n }
}

// WithRequestTimeout bounds each individual delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.requestTimeout = d }
}

// WithMaxRetries caps additional delivery attempts after the first.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) { c.maxRetries = n }
}

// withTick overrides the scheduler poll period. Test hook.
func withTick(d time.Duration) Option {
	return func(c *clientConfig) { c.tick = d }
}

// withRetryInterval overrides the transport backoff seed. Test hook.
func withRetryInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.retryInterval = d }
}
