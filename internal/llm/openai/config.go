package openai

import (
	"log/slog"
	"net/http"
	"time"
)

// Config for the OpenAI client. The API key is not part of it; keys are
// supplied per call as session credentials.
type Config struct {
	BaseURL      string        // default https://api.openai.com/v1
	Model        string        // used when a request leaves Model empty
	Timeout      time.Duration // per attempt
	MaxRetries   int           // extra attempts for retryable failures
	RetryBackoff time.Duration // first wait; doubles per attempt
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	sleep  func(time.Duration) <-chan time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		sleep:  time.After,
	}
}
