package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/MichalGrecer/Customer-Finder/internal/extract"
	"github.com/MichalGrecer/Customer-Finder/internal/fetch"
	"github.com/MichalGrecer/Customer-Finder/internal/monitoring"
	"github.com/MichalGrecer/Customer-Finder/internal/pacing"
	"github.com/MichalGrecer/Customer-Finder/internal/search"
	"github.com/MichalGrecer/Customer-Finder/internal/store"
	"go.uber.org/zap"
)

// Request describes one prospecting run.
type Request struct {
	Phrases         []string
	ResultsPerQuery int
	Language        string
	Region          string
}

// Pipeline drives a full run: search every phrase, dedupe candidates by
// domain, fetch and extract contacts, then merge into the prospect store.
type Pipeline struct {
	search  *search.Client
	fetcher *fetch.Fetcher
	store   *store.ProspectStore
	history *store.HistoryLog
	pacer   pacing.Pacer
	metrics *monitoring.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func New(sc *search.Client, f *fetch.Fetcher, ps *store.ProspectStore, h *store.HistoryLog,
	pacer pacing.Pacer, m *monitoring.Metrics, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		search:  sc,
		fetcher: f,
		store:   ps,
		history: h,
		pacer:   pacer,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the pipeline for req, reporting progress to sink. It blocks
// until the run reaches a terminal stage.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) {
	if len(req.Phrases) == 0 {
		p.abort(sink, AbortNoPhrases, errors.New("no search phrases provided"))
		return
	}

	// Pages per phrase are fixed upfront, so the run can be logged before
	// any quota is spent. A quota refusal leaves a truthful trace of what
	// was attempted.
	pages := (req.ResultsPerQuery + 9) / 10
	calls := make([]int, len(req.Phrases))
	for i := range calls {
		calls[i] = pages
	}
	if err := p.history.Append(p.now(), req.Phrases, calls); err != nil {
		p.logger.Error("failed to append search history", zap.Error(err))
		p.abort(sink, AbortSaveFailure, err)
		return
	}

	sink.StageChanged(StageSearching, "querying search API")
	session := p.search.NewSession(sink)
	var candidates []search.Candidate
	var quotaErr error
	for i, phrase := range req.Phrases {
		found, err := session.Search(ctx, phrase, req.Language, req.ResultsPerQuery, req.Region)
		if err != nil {
			if errors.Is(err, search.ErrQuotaExceeded) {
				// Completed phrases keep their results; the remaining
				// phrases are not attempted and the run ends aborted
				// after persisting what was collected.
				p.logger.Warn("daily quota exhausted, skipping remaining phrases",
					zap.String("phrase", phrase))
				quotaErr = err
				break
			}
			p.logger.Error("persisting quota state failed", zap.Error(err))
			p.abort(sink, AbortSaveFailure, err)
			return
		}
		candidates = append(candidates, found...)
		sink.Progress(i+1, len(req.Phrases))
	}
	if quotaErr != nil && len(candidates) == 0 {
		p.abort(sink, AbortQuota, quotaErr)
		return
	}

	sink.StageChanged(StageDeduping, "deduplicating results by domain")
	unique := dedupe(candidates)
	p.logger.Info("candidates deduplicated",
		zap.Int("raw", len(candidates)), zap.Int("unique", len(unique)))

	sink.StageChanged(StageFetching, "fetching candidate pages")
	records := make([]store.Record, 0, len(unique))
	for i, c := range unique {
		sink.Progress(i+1, len(unique))
		body, ok := p.fetcher.Fetch(ctx, c.URL)
		var contacts extract.Contacts
		if ok {
			contacts = extract.Extract(body, c.URL)
		}
		records = append(records, store.Record{
			Query:        c.Query,
			URL:          c.URL,
			Emails:       contacts.Emails,
			Phones:       contacts.Phones,
			Description:  contacts.Description,
			ContactLinks: contacts.ContactLinks,
		})
		if i < len(unique)-1 {
			p.pacer.Wait()
		}
	}

	sink.StageChanged(StageMerging, "saving prospects")
	added, total, err := p.store.Merge(records)
	if err != nil {
		p.logger.Error("failed to save prospects", zap.Error(err))
		p.abort(sink, AbortSaveFailure, err)
		return
	}
	p.metrics.AddRecordsWritten(added)

	if quotaErr != nil {
		p.logger.Warn("run stopped on quota after saving partial results",
			zap.Int("added", added), zap.Int("total", total))
		p.abort(sink, AbortQuota, quotaErr)
		return
	}
	p.logger.Info("run complete", zap.Int("added", added), zap.Int("total", total))

	sink.StageChanged(StageDone, "run complete")
	sink.Finished(added)
}

// dedupe keeps the first candidate per registrable domain, then drops exact
// URL duplicates among survivors. Candidates whose URL yields no domain are
// skipped entirely.
func dedupe(candidates []search.Candidate) []search.Candidate {
	seenDomain := make(map[string]struct{})
	seenURL := make(map[string]struct{})
	var out []search.Candidate
	for _, c := range candidates {
		domain := search.Domain(c.URL)
		if domain == "" {
			continue
		}
		if _, ok := seenDomain[domain]; ok {
			continue
		}
		if _, ok := seenURL[c.URL]; ok {
			continue
		}
		seenDomain[domain] = struct{}{}
		seenURL[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (p *Pipeline) abort(sink Sink, reason string, err error) {
	sink.StageChanged(StageAborted, reason)
	sink.Aborted(reason, err)
}
