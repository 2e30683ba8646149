// Package summary turns a run's accumulated outcomes into the summary
// report. Build is a pure function of its inputs; all I/O stays with the
// orchestrator.
package summary

import (
	"sort"
	"time"

	"audit-sentry/internal/collector"
)

// RunInfo is the run metadata folded into the summary document.
type RunInfo struct {
	RunID       string
	Hostname    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Environment map[string]string
}

// Counts tallies outcomes for one category or for the whole run.
type Counts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// OutcomeSummary is the per-collector line of the report.
type OutcomeSummary struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// FailureSummary lists a failed collector with its message, kept brief so
// the report stays human-scannable.
type FailureSummary struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// Document is the summary_report.json payload.
type Document struct {
	RunID          string            `json:"run_id"`
	Hostname       string            `json:"hostname,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Environment    map[string]string `json:"environment,omitempty"`
	Local          Counts            `json:"local"`
	AWS            Counts            `json:"aws"`
	Overall        Counts            `json:"overall"`
	Outcomes       []OutcomeSummary  `json:"outcomes"`
	Failures       []FailureSummary  `json:"failures,omitempty"`
}

// Build aggregates outcomes into a Document. Zero outcomes produce a valid
// document with all counts at zero.
func Build(info RunInfo, outcomes []collector.Outcome) Document {
	doc := Document{
		RunID:          info.RunID,
		Hostname:       info.Hostname,
		StartedAt:      info.StartedAt,
		FinishedAt:     info.FinishedAt,
		ElapsedSeconds: info.FinishedAt.Sub(info.StartedAt).Seconds(),
		Environment:    info.Environment,
		Outcomes:       make([]OutcomeSummary, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		line := OutcomeSummary{
			Name:       o.Spec.Name,
			Category:   string(o.Spec.Category),
			Status:     string(o.Status),
			DurationMS: o.Duration.Milliseconds(),
		}
		counts := &doc.Local
		if o.Spec.Category == collector.CategoryAWS {
			counts = &doc.AWS
		}
		counts.Total++
		doc.Overall.Total++
		if o.OK() {
			counts.Succeeded++
			doc.Overall.Succeeded++
		} else {
			counts.Failed++
			doc.Overall.Failed++
			line.Detail = o.Err.Message
			doc.Failures = append(doc.Failures, FailureSummary{
				Name:     o.Spec.Name,
				Category: string(o.Spec.Category),
				Error:    o.Err.Message,
			})
		}
		doc.Outcomes = append(doc.Outcomes, line)
	}

	// Completion order is nondeterministic under concurrency; sort so the
	// report serializes identically for equivalent outcome sets.
	sort.Slice(doc.Outcomes, func(i, j int) bool {
		if doc.Outcomes[i].Category != doc.Outcomes[j].Category {
			return doc.Outcomes[i].Category < doc.Outcomes[j].Category
		}
		return doc.Outcomes[i].Name < doc.Outcomes[j].Name
	})
	sort.Slice(doc.Failures, func(i, j int) bool {
		if doc.Failures[i].Category != doc.Failures[j].Category {
			return doc.Failures[i].Category < doc.Failures[j].Category
		}
		return doc.Failures[i].Name < doc.Failures[j].Name
	})

	return doc
}
