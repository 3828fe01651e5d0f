package pipeline

// Stage identifies where a run currently is. Transitions are strictly
// forward; Done and Aborted are terminal.
type Stage int

const (
	StageIdle Stage = iota
	StageSearching
	StageDeduping
	StageFetching
	StageMerging
	StageDone
	StageAborted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSearching:
		return "searching"
	case StageDeduping:
		return "deduping"
	case StageFetching:
		return "fetching"
	case StageMerging:
		return "merging"
	case StageDone:
		return "done"
	case StageAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Abort reasons reported through Sink.Aborted.
const (
	AbortQuota       = "quota"
	AbortNoPhrases   = "no phrases"
	AbortSaveFailure = "save failure"
)

// Sink receives progress callbacks from a running pipeline. Implementations
// must be safe for calls from the run goroutine. It also satisfies
// search.QuotaListener.
type Sink interface {
	StageChanged(stage Stage, message string)
	Progress(current, total int)
	QuotaCount(count int)
	QuotaLow(count int)
	QuotaExhausted()
	Finished(added int)
	Aborted(reason string, err error)
}
