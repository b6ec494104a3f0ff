package processor

// Stage is a step of a scrape run. Runs only move forward through the stages;
// StageError is terminal and reachable from any of them.
type Stage int

const (
	StageIdle Stage = iota
	StageFetchingStart
	StageResolving
	StageFetchingTarget
	StageExtracting
	StageWriting
	StageDone
	StageError
)

var stageNames = [...]string{
	StageIdle:           "idle",
	StageFetchingStart:  "fetching start page",
	StageResolving:      "resolving link",
	StageFetchingTarget: "fetching target page",
	StageExtracting:     "extracting",
	StageWriting:        "writing",
	StageDone:           "done",
	StageError:          "error",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
