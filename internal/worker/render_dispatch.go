// Package worker runs the asynq task handlers. Render dispatch hands a job
// to the external FFmpeg worker when one is configured; otherwise it walks a
// staged mock progression so the rest of the system behaves the same in
// development.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/internal/websocket"
)

// Dispatcher is the external render worker client subset used here.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *model.RenderDispatchPayload) error
	IsConfigured() bool
}

// RenderDispatcher processes render:dispatch tasks.
type RenderDispatcher struct {
	renderService *service.RenderService
	workerClient  Dispatcher
	hub           *websocket.Hub
}

func NewRenderDispatcher(renderService *service.RenderService, workerClient Dispatcher, hub *websocket.Hub) *RenderDispatcher {
	return &RenderDispatcher{
		renderService: renderService,
		workerClient:  workerClient,
		hub:           hub,
	}
}

// ProcessTask handles one render dispatch.
func (w *RenderDispatcher) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RenderDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal dispatch payload: %w", err)
	}

	log.Printf("Dispatching render job %s (variant %s, quality %s)", payload.JobID, payload.VariantID, payload.Quality)

	if w.workerClient != nil && w.workerClient.IsConfigured() {
		return w.dispatchToWorker(ctx, &payload)
	}
	return w.processWithMock(ctx, &payload)
}

// dispatchToWorker hands the job to the compositing worker. From here on the
// worker owns progress through the /api/worker callbacks.
func (w *RenderDispatcher) dispatchToWorker(ctx context.Context, payload *model.RenderDispatchPayload) error {
	w.updateProgress(ctx, payload.JobID, 5, "Dispatching to render worker...")

	if err := w.workerClient.Dispatch(ctx, payload); err != nil {
		w.failJob(ctx, payload.JobID, fmt.Sprintf("Render worker dispatch failed: %v", err))
		return err
	}

	log.Printf("Render job %s handed to worker", payload.JobID)
	return nil
}

// processWithMock walks the staged progression used when no worker is
// configured.
func (w *RenderDispatcher) processWithMock(ctx context.Context, payload *model.RenderDispatchPayload) error {
	steps := []struct {
		progress int
		message  string
		duration time.Duration
	}{
		{10, "Preparing scene assets...", 2 * time.Second},
		{25, "Compositing scene images...", 4 * time.Second},
		{45, "Applying text overlays...", 3 * time.Second},
		{60, "Mixing voiceover track...", 4 * time.Second},
		{75, "Encoding video...", 5 * time.Second},
		{90, "Applying watermark...", 2 * time.Second},
		{95, "Finalizing...", 1 * time.Second},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			log.Printf("Render job %s cancelled", payload.JobID)
			return ctx.Err()
		default:
		}

		w.updateProgress(ctx, payload.JobID, step.progress, step.message)
		time.Sleep(step.duration)
	}

	outputURL := fmt.Sprintf("/api/download/%s", payload.JobID)
	if err := w.renderService.CompleteJob(ctx, payload.JobID, outputURL); err != nil {
		if errors.Is(err, service.ErrJobTerminal) {
			return nil
		}
		w.failJob(ctx, payload.JobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(payload.JobID, outputURL)
	log.Printf("Render job %s completed (mock)", payload.JobID)
	return nil
}

func (w *RenderDispatcher) updateProgress(ctx context.Context, jobID string, progress int, message string) {
	if err := w.renderService.ReportProgress(ctx, jobID, progress, message); err != nil {
		log.Printf("Failed to update progress for %s: %v", jobID, err)
		return
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusProcessing, message)
}

func (w *RenderDispatcher) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.renderService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, "RENDER_FAILED", errMsg)
}
