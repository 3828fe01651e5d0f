package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/MichalGrecer/Customer-Finder/internal/config"
	"github.com/MichalGrecer/Customer-Finder/internal/fetch"
	"github.com/MichalGrecer/Customer-Finder/internal/monitoring"
	"github.com/MichalGrecer/Customer-Finder/internal/pacing"
	"github.com/MichalGrecer/Customer-Finder/internal/quota"
	"github.com/MichalGrecer/Customer-Finder/internal/search"
	"github.com/MichalGrecer/Customer-Finder/internal/store"
)

type progressTick struct {
	stage          Stage
	current, total int
}

type recordingSink struct {
	stages      []Stage
	ticks       []progressTick
	finished    int
	added       int
	abortReason string
	abortErr    error
}

func (r *recordingSink) StageChanged(s Stage, _ string) { r.stages = append(r.stages, s) }
func (r *recordingSink) Progress(current, total int) {
	r.ticks = append(r.ticks, progressTick{stage: r.lastStage(), current: current, total: total})
}
func (r *recordingSink) QuotaCount(count int)           {}
func (r *recordingSink) QuotaLow(count int)             {}
func (r *recordingSink) QuotaExhausted()                {}
func (r *recordingSink) Finished(added int) {
	r.finished++
	r.added = added
}
func (r *recordingSink) Aborted(reason string, err error) {
	r.abortReason = reason
	r.abortErr = err
}

func (r *recordingSink) lastStage() Stage {
	if len(r.stages) == 0 {
		return StageIdle
	}
	return r.stages[len(r.stages)-1]
}

func (r *recordingSink) ticksDuring(stage Stage) []progressTick {
	var out []progressTick
	for _, tick := range r.ticks {
		if tick.stage == stage {
			out = append(out, tick)
		}
	}
	return out
}

type testEnv struct {
	pipeline      *Pipeline
	prospectsPath string
	historyPath   string
	tracker       *quota.Tracker
}

func newTestEnv(t *testing.T, searchEndpoint string, initialQuota int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	creds, err := config.LoadCredentials(filepath.Join(dir, "credentials.env"))
	if err != nil {
		t.Fatal(err)
	}
	if err := creds.Set(config.Credentials{APIKey: "k", CSEID: "cx"}); err != nil {
		t.Fatal(err)
	}

	tracker := quota.NewTracker(filepath.Join(dir, "query_counter.txt"), 9, 100, logger)
	if initialQuota > 0 {
		if err := tracker.SetCount(initialQuota); err != nil {
			t.Fatal(err)
		}
	}

	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	client := search.NewClient(searchEndpoint, 5*time.Second, creds, tracker, 70, pacing.Pacer{}, metrics, logger)
	fetcher := fetch.NewFetcher(5*time.Second, metrics, logger)

	prospectsPath := filepath.Join(dir, "prospects.xlsx")
	historyPath := filepath.Join(dir, "search_history.txt")
	prospects := store.NewProspectStore(prospectsPath, logger)
	history := store.NewHistoryLog(historyPath)

	return &testEnv{
		pipeline:      New(client, fetcher, prospects, history, pacing.Pacer{}, metrics, logger),
		prospectsPath: prospectsPath,
		historyPath:   historyPath,
		tracker:       tracker,
	}
}

func TestRunEndToEnd(t *testing.T) {
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta name="description" content="A plumbing company"></head>
			<body><p>Reach us at office@example.com or 600 700 800.</p>
			<a href="/kontakt">Kontakt</a></body></html>`)
	}))
	defer pageSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[{"link":"%s/a"},{"link":"%s/b"}]}`, pageSrv.URL, pageSrv.URL)
	}))
	defer searchSrv.Close()

	env := newTestEnv(t, searchSrv.URL, 0)
	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{
		Phrases:         []string{"plumber warsaw"},
		ResultsPerQuery: 10,
		Language:        "pl",
		Region:          "pl",
	}, sink)

	if got := sink.lastStage(); got != StageDone {
		t.Fatalf("last stage = %v, want done (abort: %s %v)", got, sink.abortReason, sink.abortErr)
	}
	if sink.finished != 1 || sink.added != 1 {
		t.Errorf("finished=%d added=%d, want 1/1 (both links share a domain)", sink.finished, sink.added)
	}

	records, err := store.NewProspectStore(env.prospectsPath, zap.NewNop()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Query != "plumber warsaw" {
		t.Errorf("Query = %q", rec.Query)
	}
	if rec.Emails != "office@example.com" {
		t.Errorf("Emails = %q", rec.Emails)
	}
	if rec.Phones != "600 700 800" {
		t.Errorf("Phones = %q", rec.Phones)
	}
	if rec.Description != "A plumbing company" {
		t.Errorf("Description = %q", rec.Description)
	}
	if !strings.HasSuffix(rec.ContactLinks, "/kontakt") {
		t.Errorf("ContactLinks = %q", rec.ContactLinks)
	}

	history, err := os.ReadFile(env.historyPath)
	if err != nil {
		t.Fatalf("history log missing: %v", err)
	}
	if !strings.Contains(string(history), "- plumber warsaw (1 API queries)") {
		t.Errorf("history content:\n%s", history)
	}
}

func TestRunReportsPerPhraseSearchProgress(t *testing.T) {
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer searchSrv.Close()

	env := newTestEnv(t, searchSrv.URL, 0)
	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{
		Phrases:         []string{"plumber", "electrician"},
		ResultsPerQuery: 10,
	}, sink)

	ticks := sink.ticksDuring(StageSearching)
	if len(ticks) != 2 {
		t.Fatalf("got %d progress ticks during searching, want one per phrase", len(ticks))
	}
	for i, tick := range ticks {
		if tick.current != i+1 || tick.total != 2 {
			t.Errorf("tick %d = %d/%d, want %d/2", i, tick.current, tick.total, i+1)
		}
	}
}

func TestRunFetchesEveryDistinctDomain(t *testing.T) {
	// Two phrases, ten distinct-domain links each, no overlap: all twenty
	// survive dedup. The hosts never resolve, so every fetch fails and
	// every record is written with empty contact fields.
	page := 0
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		items := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			items = append(items, fmt.Sprintf(`{"link":"http://site%d.invalid/"}`, (page-1)*10+i))
		}
		fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
	}))
	defer searchSrv.Close()

	env := newTestEnv(t, searchSrv.URL, 0)
	env.pipeline.fetcher = fetch.NewFetcher(200*time.Millisecond,
		monitoring.NewMetricsWith(prometheus.NewRegistry()), zap.NewNop())

	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{
		Phrases:         []string{"plumber", "electrician"},
		ResultsPerQuery: 10,
	}, sink)

	if got := sink.lastStage(); got != StageDone {
		t.Fatalf("last stage = %v, want done (abort: %s %v)", got, sink.abortReason, sink.abortErr)
	}

	ticks := sink.ticksDuring(StageFetching)
	if len(ticks) != 20 {
		t.Fatalf("fetching stage processed %d URLs, want 20", len(ticks))
	}
	if last := ticks[len(ticks)-1]; last.current != 20 || last.total != 20 {
		t.Errorf("final fetch tick = %d/%d, want 20/20", last.current, last.total)
	}

	records, err := store.NewProspectStore(env.prospectsPath, zap.NewNop()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 20 {
		t.Fatalf("got %d records, want 20", len(records))
	}
	for _, rec := range records {
		if rec.Emails != "" || rec.Phones != "" || rec.Description != "" || rec.ContactLinks != "" {
			t.Errorf("unfetchable page must yield empty contact fields, got %+v", rec)
		}
	}
}

func TestRunFailedFetchStillYieldsRow(t *testing.T) {
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer pageSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[{"link":"%s/broken"}]}`, pageSrv.URL)
	}))
	defer searchSrv.Close()

	env := newTestEnv(t, searchSrv.URL, 0)
	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{Phrases: []string{"plumber"}, ResultsPerQuery: 10}, sink)

	if got := sink.lastStage(); got != StageDone {
		t.Fatalf("last stage = %v, want done", got)
	}
	records, err := store.NewProspectStore(env.prospectsPath, zap.NewNop()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Emails != "" || records[0].Phones != "" {
		t.Errorf("failed fetch must yield an empty-contact row, got %+v", records[0])
	}
}

func TestRunNoPhrases(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:0", 0)
	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{ResultsPerQuery: 10}, sink)

	if sink.abortReason != AbortNoPhrases {
		t.Errorf("abort reason = %q, want %q", sink.abortReason, AbortNoPhrases)
	}
	if _, err := os.Stat(env.historyPath); !os.IsNotExist(err) {
		t.Error("no history entry expected for an empty run")
	}
}

func TestRunQuotaAbort(t *testing.T) {
	requests := 0
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer searchSrv.Close()

	env := newTestEnv(t, searchSrv.URL, 100)
	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{Phrases: []string{"plumber"}, ResultsPerQuery: 10}, sink)

	if sink.abortReason != AbortQuota {
		t.Errorf("abort reason = %q, want %q", sink.abortReason, AbortQuota)
	}
	if requests != 0 {
		t.Errorf("refused run still issued %d search requests", requests)
	}
	if _, err := os.Stat(env.prospectsPath); !os.IsNotExist(err) {
		t.Error("no prospects file expected for an aborted run")
	}
	if _, err := os.Stat(env.historyPath); err != nil {
		t.Error("the attempted run should still be logged in history")
	}
}

func TestRunQuotaMidRunKeepsCompletedPhrases(t *testing.T) {
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>office@example.com</p></body></html>`)
	}))
	defer pageSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[{"link":"%s/a"}]}`, pageSrv.URL)
	}))
	defer searchSrv.Close()

	// The first phrase consumes the last quota unit; the second is refused.
	env := newTestEnv(t, searchSrv.URL, 99)
	sink := &recordingSink{}
	env.pipeline.Run(context.Background(), Request{
		Phrases:         []string{"plumber", "electrician"},
		ResultsPerQuery: 10,
	}, sink)

	if sink.abortReason != AbortQuota {
		t.Fatalf("abort reason = %q, want %q", sink.abortReason, AbortQuota)
	}
	records, err := store.NewProspectStore(env.prospectsPath, zap.NewNop()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want the completed phrase persisted", len(records))
	}
	if records[0].Query != "plumber" {
		t.Errorf("Query = %q", records[0].Query)
	}
}

func TestDedupeKeepsFirstPerDomain(t *testing.T) {
	candidates := []search.Candidate{
		{Query: "a", URL: "https://www.acme.example/x"},
		{Query: "a", URL: "https://shop.acme.example/y"},
		{Query: "a", URL: "https://other.example/z"},
		{Query: "b", URL: "https://other.example/z"},
		{Query: "b", URL: "not a url at all://"},
	}
	out := dedupe(candidates)
	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out))
	}
	if out[0].URL != "https://www.acme.example/x" {
		t.Errorf("first survivor = %q, want the first URL of the domain", out[0].URL)
	}
	if out[1].URL != "https://other.example/z" {
		t.Errorf("second survivor = %q", out[1].URL)
	}
}
