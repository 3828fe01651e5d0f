package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MichalGrecer/Customer-Finder/internal/monitoring"
)

// Fetcher retrieves raw HTML for result URLs. One attempt per URL, bounded
// timeout, no retries: a page that cannot be fetched simply yields an empty
// contact record downstream.
type Fetcher struct {
	client  *http.Client
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewFetcher(timeout time.Duration, m *monitoring.Metrics, l *zap.Logger) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		metrics: m,
		logger:  l,
	}
}

// Fetch returns the page body and true, or ("", false) on any network or
// status error. Failures are logged and never abort the run.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, bool) {
	body, err := f.get(ctx, pageURL)
	if err != nil {
		f.logger.Warn("failed to fetch page", zap.String("url", pageURL), zap.Error(err))
		f.metrics.IncErrors("fetch_failed")
		return "", false
	}
	f.metrics.IncPagesFetched()
	return body, true
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("page responded with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
