package quota

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const timeLayout = "2006-01-02 15:04:05"

// Tracker persists the daily API-call counter. The counter rolls over to zero
// when the calendar date advances past the stored one, or when the current
// time crosses the daily reset hour on the same day. The tracker only stores
// and reports; enforcing the ceiling is the caller's job.
type Tracker struct {
	path      string
	resetHour int
	limit     int
	now       func() time.Time
	logger    *zap.Logger
}

func NewTracker(path string, resetHour, limit int, logger *zap.Logger) *Tracker {
	return &Tracker{
		path:      path,
		resetHour: resetHour,
		limit:     limit,
		now:       time.Now,
		logger:    logger,
	}
}

// Limit returns the daily call ceiling.
func (t *Tracker) Limit() int {
	return t.limit
}

// Count returns the current counter, applying the rollover check first.
// A missing or malformed state file counts as a fresh zero-count day.
// The returned error is only ever a write failure from the implicit reset.
func (t *Tracker) Count() (int, error) {
	now := t.now()

	stored, count, ok := t.read()
	if !ok {
		return 0, t.reset()
	}

	if dateAfter(now, stored) {
		return 0, t.reset()
	}
	if sameDate(now, stored) && now.Hour() >= t.resetHour && stored.Hour() < t.resetHour {
		return 0, t.reset()
	}
	return count, nil
}

// SetCount persists the counter together with the current timestamp.
func (t *Tracker) SetCount(count int) error {
	return t.write(t.now(), count)
}

// NextReset returns the next daily rollover boundary after now.
func (t *Tracker) NextReset(now time.Time) time.Time {
	reset := time.Date(now.Year(), now.Month(), now.Day(), t.resetHour, 0, 0, 0, now.Location())
	if now.Hour() >= t.resetHour {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset
}

func (t *Tracker) read() (time.Time, int, bool) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn("unreadable quota state file, starting fresh", zap.Error(err))
		}
		return time.Time{}, 0, false
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return time.Time{}, 0, false
	}

	stored, err := time.ParseInLocation(timeLayout, strings.TrimSpace(lines[0]), t.now().Location())
	if err != nil {
		// Older revisions stored the date only.
		stored, err = time.ParseInLocation("2006-01-02", strings.TrimSpace(lines[0]), t.now().Location())
		if err != nil {
			return time.Time{}, 0, false
		}
	}

	count, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil || count < 0 {
		return time.Time{}, 0, false
	}
	return stored, count, true
}

func (t *Tracker) reset() error {
	return t.write(t.now(), 0)
}

func (t *Tracker) write(now time.Time, count int) error {
	content := fmt.Sprintf("%s\n%d\n", now.Format(timeLayout), count)
	if err := os.WriteFile(t.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write quota state file: %w", err)
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}
