package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Outcome is the final classification of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// BuildReport captures the result of a single pipeline run.
type BuildReport struct {
	ID              string                       `json:"id"`
	Start           time.Time                    `json:"start"`
	Duration        time.Duration                `json:"duration"`
	Outcome         Outcome                      `json:"outcome"`
	StageDurations  map[StageName]time.Duration  `json:"stage_durations"`
	StageErrorKinds map[StageName]StageErrorKind `json:"stage_error_kinds,omitempty"`
	PrunedArtifacts int                          `json:"pruned_artifacts"`
	StagedFiles     int                          `json:"staged_files"`
	Warnings        []string                     `json:"warnings,omitempty"`
	Error           string                       `json:"error,omitempty"`
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		ID:              uuid.NewString(),
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
	}
}

// recordStage stores the stage duration and, when se is non-nil, its classification.
func (r *BuildReport) recordStage(name StageName, dur time.Duration, se *StageError) {
	r.StageDurations[name] = dur
	if se == nil {
		return
	}
	r.StageErrorKinds[name] = se.Kind
	if se.Kind == StageErrorWarning {
		r.Warnings = append(r.Warnings, se.Error())
	}
}

// finish stamps the total duration and derives the final outcome.
func (r *BuildReport) finish(err error) {
	r.Duration = time.Since(r.Start)
	switch {
	case err == nil && len(r.Warnings) == 0:
		r.Outcome = OutcomeSuccess
	case err == nil:
		r.Outcome = OutcomeWarning
	default:
		var se *StageError
		if errors.As(err, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
		} else {
			r.Outcome = OutcomeFailed
		}
		r.Error = err.Error()
	}
}
