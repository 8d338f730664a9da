// Package bus implements the in-process workflow engine: named steps declare
// the topics they subscribe to and emit, and Emit fans a payload out to every
// subscriber concurrently. Delivery is at-least-once from the caller's point
// of view and fire-and-forget from the emitter's: Emit validates and returns,
// it never blocks on handler completion, and no ordering holds between
// handlers on the same topic.
package bus

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/state"
)

// Handler processes one delivered payload. The payload's concrete type is
// the struct registered for the topic in the event package.
type Handler func(ctx context.Context, payload any) error

// DefaultStepTimeout bounds one handler invocation, covering the slowest
// collaborator chain (image generation per scene).
const DefaultStepTimeout = 120 * time.Second

const journalCap = 200

type stepReg struct {
	name       string
	subscribes []event.Topic
	emits      []event.Topic
	handler    Handler
}

// Engine is the workflow engine and event bus.
type Engine struct {
	mu      sync.RWMutex
	steps   map[string]*stepReg
	byTopic map[event.Topic][]*stepReg

	store       state.Store
	validate    *validator.Validate
	stepTimeout time.Duration

	inflight sync.WaitGroup
}

type Option func(*Engine)

// WithStepTimeout overrides the per-invocation handler timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) { e.stepTimeout = d }
}

func New(store state.Store, validate *validator.Validate, opts ...Option) *Engine {
	e := &Engine{
		steps:       make(map[string]*stepReg),
		byTopic:     make(map[event.Topic][]*stepReg),
		store:       store,
		validate:    validate,
		stepTimeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterStep adds a named step. Topics must belong to the workflow
// vocabulary and step names must be unique.
func (e *Engine) RegisterStep(name string, subscribes, emits []event.Topic, h Handler) error {
	if name == "" {
		return fmt.Errorf("bus: step name is required")
	}
	if h == nil {
		return fmt.Errorf("bus: step %s has no handler", name)
	}
	for _, t := range append(append([]event.Topic{}, subscribes...), emits...) {
		if !event.Known(t) {
			return fmt.Errorf("bus: step %s references unknown topic %q", name, t)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.steps[name]; exists {
		return fmt.Errorf("bus: step %s already registered", name)
	}
	reg := &stepReg{name: name, subscribes: subscribes, emits: emits, handler: h}
	e.steps[name] = reg
	for _, t := range subscribes {
		e.byTopic[t] = append(e.byTopic[t], reg)
	}
	return nil
}

// Emit validates the payload against the topic's registered contract and
// dispatches it to every subscriber, each in its own goroutine. A validation
// failure is the producer's bug and is returned; handler errors are not.
func (e *Engine) Emit(ctx context.Context, topic event.Topic, payload any) error {
	want, ok := event.PayloadType(topic)
	if !ok {
		return fmt.Errorf("bus: unknown topic %q", topic)
	}
	if got := reflect.TypeOf(payload); got != want {
		return fmt.Errorf("bus: topic %s expects payload %s, got %s", topic, want, got)
	}
	if err := e.validate.Struct(payload); err != nil {
		return fmt.Errorf("bus: invalid payload for %s: %w", topic, err)
	}

	e.mu.RLock()
	subs := make([]*stepReg, len(e.byTopic[topic]))
	copy(subs, e.byTopic[topic])
	e.mu.RUnlock()

	if len(subs) == 0 {
		log.Printf("bus: no subscriber for topic %s", topic)
	}

	for _, reg := range subs {
		e.inflight.Add(1)
		go e.invoke(reg, topic, payload)
	}
	return nil
}

// invoke runs one handler with panic recovery and journals the outcome.
// Handlers run on a background-derived context: the emitting request may
// complete (and its context die) long before the pipeline does.
func (e *Engine) invoke(reg *stepReg, topic event.Topic, payload any) {
	defer e.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.stepTimeout)
	defer cancel()

	projectID := ""
	if scoped, ok := payload.(event.ProjectScoped); ok {
		projectID = scoped.ProjectKey()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus: step %s panicked on %s: %v", reg.name, topic, r)
			e.journal(projectID, JournalEntry{
				Step: reg.name, Topic: string(topic), Outcome: OutcomePanic,
				Error: fmt.Sprint(r), DurationMS: time.Since(start).Milliseconds(),
			})
		}
	}()

	if err := reg.handler(ctx, payload); err != nil {
		// The bus never retries; the failed branch simply stops here. The
		// journal entry keeps the stall diagnosable from the outside.
		log.Printf("bus: step %s failed on %s: %v", reg.name, topic, err)
		e.journal(projectID, JournalEntry{
			Step: reg.name, Topic: string(topic), Outcome: OutcomeFailed,
			Error: err.Error(), DurationMS: time.Since(start).Milliseconds(),
		})
		return
	}

	e.journal(projectID, JournalEntry{
		Step: reg.name, Topic: string(topic), Outcome: OutcomeOK,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// Wait blocks until all dispatched handlers have returned. Used by tests and
// by graceful shutdown.
func (e *Engine) Wait() {
	e.inflight.Wait()
}
