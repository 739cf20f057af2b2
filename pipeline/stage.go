package pipeline

type StageStatus string

const (
	StageApplied  StageStatus = "applied"
	StageSkipped  StageStatus = "skipped"
	StageDegraded StageStatus = "degraded"
)

// StageOutcome records what an optional stage did for one request.
type StageOutcome struct {
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

func applied() StageOutcome {
	return StageOutcome{Status: StageApplied}
}

func skipped(reason string) StageOutcome {
	return StageOutcome{Status: StageSkipped, Reason: reason}
}

func degraded(err error) StageOutcome {
	return StageOutcome{Status: StageDegraded, Reason: err.Error()}
}

// Stages lists the outcome of every optional stage.
type Stages struct {
	Detection   StageOutcome `json:"detection"`
	Description StageOutcome `json:"description"`
}
