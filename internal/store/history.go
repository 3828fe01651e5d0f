package store

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// HistoryLog is the append-only text log of completed search runs. Each run
// is one block: a timestamp line, one line per phrase with its API call
// count, and a trailing blank line.
type HistoryLog struct {
	path string
}

func NewHistoryLog(path string) *HistoryLog {
	return &HistoryLog{path: path}
}

// Append records one run. callsPerPhrase is positional with phrases; a
// missing entry is logged as zero calls.
func (h *HistoryLog) Append(t time.Time, phrases []string, callsPerPhrase []int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Search on: %s\n", t.Format("2006-01-02 15:04:05"))
	for i, phrase := range phrases {
		calls := 0
		if i < len(callsPerPhrase) {
			calls = callsPerPhrase[i]
		}
		fmt.Fprintf(&b, "- %s (%d API queries)\n", phrase, calls)
	}
	b.WriteString("\n")

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Tail returns the last n run blocks, oldest first. A missing log is empty
// history, not an error.
func (h *HistoryLog) Tail(n int) (string, error) {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read history log: %w", err)
	}

	blocks := strings.Split(strings.TrimRight(string(data), "\n"), "\n\n")
	if n > 0 && len(blocks) > n {
		blocks = blocks[len(blocks)-n:]
	}
	out := strings.Join(blocks, "\n\n")
	if out != "" {
		out += "\n"
	}
	return out, nil
}
