package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MichalGrecer/Customer-Finder/internal/config"
	"github.com/MichalGrecer/Customer-Finder/internal/monitoring"
	"github.com/MichalGrecer/Customer-Finder/internal/pacing"
	"github.com/MichalGrecer/Customer-Finder/internal/quota"
)

var (
	// ErrQuotaExceeded is returned before any page is requested when the
	// query cannot complete within the daily quota.
	ErrQuotaExceeded = errors.New("daily search quota exceeded")
	// ErrNoCredentials is returned while the credential pair is missing.
	ErrNoCredentials = errors.New("search credentials not configured")
)

// Candidate is one search hit, tagged with the phrase that produced it.
// Candidates live only for the duration of one pipeline run.
type Candidate struct {
	Query string
	URL   string
}

// QuotaListener receives quota events emitted while searching. The pipeline's
// progress sink is the usual implementation.
type QuotaListener interface {
	// QuotaCount reports every persisted counter update.
	QuotaCount(count int)
	// QuotaLow fires at most once per session when the counter crosses
	// the low-water threshold.
	QuotaLow(count int)
	// QuotaExhausted fires when the counter reaches the daily ceiling.
	QuotaExhausted()
}

// Client issues paginated queries against the search provider. Every page
// costs one quota unit; the provider returns at most resultsPerPage hits per
// call.
type Client struct {
	endpoint   string
	httpClient *http.Client
	creds      *config.CredentialStore
	quota      *quota.Tracker
	lowWater   int
	pacer      pacing.Pacer
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

const resultsPerPage = 10

func NewClient(endpoint string, timeout time.Duration, creds *config.CredentialStore, tracker *quota.Tracker, lowWater int, pacer pacing.Pacer, m *monitoring.Metrics, l *zap.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		quota:      tracker,
		lowWater:   lowWater,
		pacer:      pacer,
		metrics:    m,
		logger:     l,
	}
}

// Ready reports whether the credential pair gating all searches is present.
func (c *Client) Ready() bool {
	return c.creds.Ready()
}

// Quota exposes the tracker for status reporting.
func (c *Client) Quota() *quota.Tracker {
	return c.quota
}

// Session scopes the one-time low-quota advisory to a single pipeline run.
type Session struct {
	client    *Client
	listener  QuotaListener
	lowWarned bool
}

func (c *Client) NewSession(listener QuotaListener) *Session {
	return &Session{client: c, listener: listener}
}

// Search issues ceil(numResults/10) paginated calls for one phrase.
//
// The whole query is refused with ErrQuotaExceeded when it cannot complete
// within the quota; nothing is attempted in that case. A failed page aborts
// the remaining pages for this phrase but keeps the results already
// collected — that is non-fatal and reported as a nil error. A quota
// persistence failure is fatal and returned alongside the partial results.
func (s *Session) Search(ctx context.Context, query, language string, numResults int, region string) ([]Candidate, error) {
	c := s.client
	pages := (numResults + resultsPerPage - 1) / resultsPerPage

	count, err := c.quota.Count()
	if err != nil {
		return nil, err
	}
	if count+pages > c.quota.Limit() {
		c.logger.Warn("query refused, daily quota would be exceeded",
			zap.String("query", query), zap.Int("count", count), zap.Int("pages_needed", pages))
		return nil, ErrQuotaExceeded
	}

	var links []Candidate
	for i := 0; i < pages; i++ {
		items, err := c.page(ctx, query, language, region, i*resultsPerPage+1)
		if err != nil {
			c.logger.Warn("search request failed, keeping partial results",
				zap.String("query", query), zap.Int("page", i+1), zap.Error(err))
			c.metrics.IncErrors("search_failed")
			break
		}

		for _, link := range items {
			links = append(links, Candidate{Query: query, URL: link})
		}

		count++
		if err := c.quota.SetCount(count); err != nil {
			return links, err
		}
		c.metrics.IncSearchCalls()
		c.metrics.SetQuotaUsed(count)
		s.listener.QuotaCount(count)

		if count >= c.lowWater && !s.lowWarned {
			s.lowWarned = true
			s.listener.QuotaLow(count)
		}
		if count >= c.quota.Limit() {
			s.listener.QuotaExhausted()
			break
		}

		c.pacer.Wait()
	}
	return links, nil
}

func (c *Client) page(ctx context.Context, query, language, region string, start int) ([]string, error) {
	creds := c.creds.Get()
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}

	params := url.Values{}
	params.Set("key", creds.APIKey)
	params.Set("cx", creds.CSEID)
	params.Set("q", query)
	params.Set("gl", region)
	params.Set("hl", language)
	params.Set("start", strconv.Itoa(start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search provider responded with status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			Link string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	links := make([]string, 0, len(payload.Items))
	for _, item := range payload.Items {
		links = append(links, item.Link)
	}
	return links, nil
}
