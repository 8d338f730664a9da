package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

func newTestEngine(t *testing.T) (*Engine, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore()
	return New(store, validator.New(), WithStepTimeout(5*time.Second)), store
}

func startedPayload(projectID string) event.GenerationStarted {
	return event.GenerationStarted{
		ProjectID:    projectID,
		URL:          "https://example.com",
		AspectRatios: []model.AspectRatio{model.AspectLandscape},
		Duration:     5,
	}
}

func TestRegisterStep_RejectsUnknownTopic(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.RegisterStep("bad", []event.Topic{"no.such.topic"}, nil, func(ctx context.Context, p any) error {
		return nil
	})
	require.Error(t, err)
}

func TestRegisterStep_RejectsDuplicateName(t *testing.T) {
	eng, _ := newTestEngine(t)
	noop := func(ctx context.Context, p any) error { return nil }

	require.NoError(t, eng.RegisterStep("scrape", []event.Topic{event.TopicGenerationStarted}, nil, noop))
	err := eng.RegisterStep("scrape", []event.Topic{event.TopicSiteScraped}, nil, noop)
	require.Error(t, err)
}

func TestEmit_DispatchesToAllSubscribers(t *testing.T) {
	eng, _ := newTestEngine(t)

	var mu sync.Mutex
	got := map[string]int{}
	record := func(name string) Handler {
		return func(ctx context.Context, p any) error {
			mu.Lock()
			got[name]++
			mu.Unlock()
			return nil
		}
	}

	require.NoError(t, eng.RegisterStep("a", []event.Topic{event.TopicGenerationStarted}, nil, record("a")))
	require.NoError(t, eng.RegisterStep("b", []event.Topic{event.TopicGenerationStarted}, nil, record("b")))
	require.NoError(t, eng.RegisterStep("other", []event.Topic{event.TopicSiteScraped}, nil, record("other")))

	require.NoError(t, eng.Emit(context.Background(), event.TopicGenerationStarted, startedPayload("proj_1")))
	eng.Wait()

	assert.Equal(t, 1, got["a"])
	assert.Equal(t, 1, got["b"])
	assert.Zero(t, got["other"])
}

func TestEmit_RejectsWrongPayloadType(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.Emit(context.Background(), event.TopicGenerationStarted, event.SiteScraped{})
	require.Error(t, err)
}

func TestEmit_RejectsInvalidPayload(t *testing.T) {
	eng, _ := newTestEngine(t)

	p := startedPayload("proj_1")
	p.URL = "not-a-url"
	err := eng.Emit(context.Background(), event.TopicGenerationStarted, p)
	require.Error(t, err)
}

func TestEmit_HandlerErrorDoesNotPropagate(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.RegisterStep("failing", []event.Topic{event.TopicGenerationStarted}, nil,
		func(ctx context.Context, p any) error {
			return errors.New("collaborator exploded")
		}))

	require.NoError(t, eng.Emit(context.Background(), event.TopicGenerationStarted, startedPayload("proj_1")))
	eng.Wait()
}

func TestJournal_RecordsOutcomes(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.RegisterStep("ok-step", []event.Topic{event.TopicGenerationStarted}, nil,
		func(ctx context.Context, p any) error { return nil }))
	require.NoError(t, eng.RegisterStep("bad-step", []event.Topic{event.TopicGenerationStarted}, nil,
		func(ctx context.Context, p any) error { return errors.New("boom") }))
	require.NoError(t, eng.RegisterStep("panicky", []event.Topic{event.TopicGenerationStarted}, nil,
		func(ctx context.Context, p any) error { panic("ouch") }))

	require.NoError(t, eng.Emit(context.Background(), event.TopicGenerationStarted, startedPayload("proj_j")))
	eng.Wait()

	entries, err := eng.Journal(context.Background(), "proj_j")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	outcomes := map[string]Outcome{}
	for _, en := range entries {
		outcomes[en.Step] = en.Outcome
	}
	assert.Equal(t, OutcomeOK, outcomes["ok-step"])
	assert.Equal(t, OutcomeFailed, outcomes["bad-step"])
	assert.Equal(t, OutcomePanic, outcomes["panicky"])
}

func TestRecordFallback(t *testing.T) {
	eng, _ := newTestEngine(t)

	eng.RecordFallback("proj_f", "brand-extract", "model call failed, derived profile from scrape")

	entries, err := eng.Journal(context.Background(), "proj_f")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeFallback, entries[0].Outcome)
	assert.Equal(t, "brand-extract", entries[0].Step)
}

func TestEmit_ChainsAcrossTopics(t *testing.T) {
	eng, _ := newTestEngine(t)

	done := make(chan string, 1)
	require.NoError(t, eng.RegisterStep("first", []event.Topic{event.TopicGenerationStarted},
		[]event.Topic{event.TopicSiteScraped},
		func(ctx context.Context, p any) error {
			in := p.(event.GenerationStarted)
			return eng.Emit(ctx, event.TopicSiteScraped, event.SiteScraped{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				AspectRatios: in.AspectRatios,
				Duration:     in.Duration,
			})
		}))
	require.NoError(t, eng.RegisterStep("second", []event.Topic{event.TopicSiteScraped}, nil,
		func(ctx context.Context, p any) error {
			done <- p.(event.SiteScraped).ProjectID
			return nil
		}))

	require.NoError(t, eng.Emit(context.Background(), event.TopicGenerationStarted, startedPayload("proj_chain")))

	select {
	case id := <-done:
		assert.Equal(t, "proj_chain", id)
	case <-time.After(2 * time.Second):
		t.Fatal("chained step never ran")
	}
	eng.Wait()
}
