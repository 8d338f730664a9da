package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/narriq/api/internal/state"
)

// Outcome classifies one step invocation in the per-project journal.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFallback Outcome = "fallback"
	OutcomeFailed   Outcome = "failed"
	OutcomePanic    Outcome = "panic"
)

// JournalEntry is one observable step outcome. The journal is what makes a
// silently stalled pipeline diagnosable: the last entry for a project shows
// where its branch stopped.
type JournalEntry struct {
	Step       string  `json:"step"`
	Topic      string  `json:"topic,omitempty"`
	Outcome    Outcome `json:"outcome"`
	Error      string  `json:"error,omitempty"`
	Note       string  `json:"note,omitempty"`
	At         int64   `json:"at"`
	DurationMS int64   `json:"durationMs,omitempty"`
}

func (e *Engine) journal(projectID string, entry JournalEntry) {
	if projectID == "" || e.store == nil {
		return
	}
	entry.At = time.Now().UnixMilli()

	err := e.store.Update(context.Background(), state.NamespaceEvents, projectID,
		func(data []byte, ok bool) (any, error) {
			var entries []JournalEntry
			if ok {
				if err := json.Unmarshal(data, &entries); err != nil {
					entries = nil
				}
			}
			entries = append(entries, entry)
			if len(entries) > journalCap {
				entries = entries[len(entries)-journalCap:]
			}
			return entries, nil
		})
	if err != nil {
		log.Printf("bus: journal write failed for %s: %v", projectID, err)
	}
}

// RecordFallback lets a step note that it substituted deterministic default
// content after a collaborator failure.
func (e *Engine) RecordFallback(projectID, step, note string) {
	e.journal(projectID, JournalEntry{Step: step, Outcome: OutcomeFallback, Note: note})
}

// Journal returns the step outcome log for a project.
func (e *Engine) Journal(ctx context.Context, projectID string) ([]JournalEntry, error) {
	data, ok, err := e.store.Get(ctx, state.NamespaceEvents, projectID)
	if err != nil || !ok {
		return nil, err
	}
	var entries []JournalEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
