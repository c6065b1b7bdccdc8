package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/rain-outlook/internal/weather"
)

// FileSource reads history from a CSV file on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

func (s *FileSource) Load(ctx context.Context) ([]*weather.FeatureTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseCSV(f)
}

// HTTPSource downloads the CSV export from a URL.
type HTTPSource struct {
	url     string
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewHTTPSource creates an HTTPSource with backoff and a circuit breaker
// around each download.
func NewHTTPSource(client *http.Client, url string) *HTTPSource {
	s := &HTTPSource{
		url:     url,
		client:  client,
		backoff: DefaultBackoff,
		logger:  slog.Default(),
	}
	s.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dataset",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// WithBackoff replaces the retry policy.
func (s *HTTPSource) WithBackoff(b BackoffConfig) *HTTPSource {
	s.backoff = b
	return s
}

// WithLogger sets the logger used for retries and breaker transitions.
func (s *HTTPSource) WithLogger(l *slog.Logger) *HTTPSource {
	s.logger = l
	return s
}

func (s *HTTPSource) Name() string {
	return s.url
}

func (s *HTTPSource) Load(ctx context.Context) ([]*weather.FeatureTable, error) {
	resp, err := s.download(ctx)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	return ParseCSV(resp.Body)
}
