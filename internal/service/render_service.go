package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

const TaskTypeRenderDispatch = "render:dispatch"

// renderSimDuration is the simulated wall-clock time from enqueue to
// completion when no render worker has reported in.
const renderSimDuration = 30 * time.Second

// TaskEnqueuer is the asynq client subset the service uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RenderService owns the render-job state machine. Two writers exist: the
// time-simulated recomputation on status polls and the worker callbacks; the
// WorkerDriven flag makes the worker authoritative once it reports.
type RenderService struct {
	store    state.Store
	enqueuer TaskEnqueuer
}

func NewRenderService(store state.Store, enqueuer TaskEnqueuer) *RenderService {
	return &RenderService{store: store, enqueuer: enqueuer}
}

// StartRender validates the project/variant pair, stores a queued job and
// enqueues its dispatch task.
func (s *RenderService) StartRender(ctx context.Context, req *model.RenderRequest) (*model.RenderResponse, error) {
	project, err := s.loadProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	variant, ok := project.VariantByID(req.VariantID)
	if !ok {
		return nil, ErrVariantNotFound
	}

	quality := req.Quality
	if quality == "" {
		quality = model.QualityPreview
	}
	watermark := true
	if req.Watermark != nil {
		watermark = *req.Watermark
	}

	jobID := "job_" + uuid.New().String()
	job := model.RenderJob{
		JobID:     jobID,
		ProjectID: req.ProjectID,
		VariantID: req.VariantID,
		Quality:   quality,
		Watermark: watermark,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.store.Set(ctx, state.NamespaceRenderJobs, jobID, job); err != nil {
		return nil, fmt.Errorf("store render job: %w", err)
	}

	if s.enqueuer != nil {
		payload := model.RenderDispatchPayload{
			JobID:       jobID,
			ProjectID:   req.ProjectID,
			VariantID:   req.VariantID,
			AspectRatio: variant.AspectRatio,
			Scenes:      variant.Scenes,
			Music:       variant.Music,
			Watermark:   watermark,
			Quality:     quality,
		}
		if project.BrandProfile != nil {
			payload.BrandProfile = model.RenderBrand{
				BrandName:      project.BrandProfile.BrandName,
				PrimaryColor:   project.BrandProfile.PrimaryColor,
				SecondaryColor: project.BrandProfile.SecondaryColor,
			}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal dispatch payload: %w", err)
		}
		_, err = s.enqueuer.Enqueue(asynq.NewTask(TaskTypeRenderDispatch, data),
			asynq.Queue("render"),
			asynq.MaxRetry(3),
			asynq.Retention(24*time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("enqueue dispatch task: %w", err)
		}
	}

	estimated := 30
	if quality != model.QualityPreview {
		estimated = 120
	}
	return &model.RenderResponse{
		JobID:         jobID,
		Status:        model.JobStatusQueued,
		Message:       "Render job queued successfully",
		EstimatedTime: estimated,
	}, nil
}

// GetStatus returns the job's current view. While no worker has reported and
// the job is live, each poll recomputes progress from elapsed time under the
// job's Update lock; progress never decreases and terminal states never
// revert.
func (s *RenderService) GetStatus(ctx context.Context, jobID string) (*model.RenderStatusResponse, error) {
	var job model.RenderJob
	err := s.store.Update(ctx, state.NamespaceRenderJobs, jobID, func(data []byte, ok bool) (any, error) {
		if !ok {
			return nil, ErrJobNotFound
		}
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("decode render job: %w", err)
		}
		if job.WorkerDriven || job.Status.Terminal() {
			return nil, nil
		}

		now := time.Now()
		elapsed := now.Sub(time.UnixMilli(job.CreatedAt))
		progress := int(elapsed * 100 / renderSimDuration)
		if progress > 100 {
			progress = 100
		}
		if progress < job.Progress {
			progress = job.Progress
		}

		status := model.JobStatusProcessing
		switch {
		case progress < 10:
			status = model.JobStatusQueued
		case progress >= 100:
			status = model.JobStatusCompleted
			progress = 100
		}

		millis := now.UnixMilli()
		if status != model.JobStatusQueued && job.StartedAt == nil {
			job.StartedAt = &millis
		}
		if status == model.JobStatusCompleted {
			job.CompletedAt = &millis
			job.OutputURL = "/api/download/" + jobID
			job.Message = "Render completed"
		}
		job.Status = status
		job.Progress = progress
		job.UpdatedAt = millis
		return job, nil
	})
	if err != nil {
		return nil, err
	}

	resp := &model.RenderStatusResponse{
		JobID:     job.JobID,
		Status:    job.Status,
		Progress:  job.Progress,
		ProjectID: job.ProjectID,
		VariantID: job.VariantID,
		Quality:   job.Quality,
	}
	if job.Status == model.JobStatusCompleted && job.OutputURL != "" {
		url := job.OutputURL
		resp.OutputURL = &url
	}
	return resp, nil
}

// ReportProgress applies a worker progress callback. The first report flips
// the job to worker-driven; later simulated polls leave it alone.
func (s *RenderService) ReportProgress(ctx context.Context, jobID string, progress int, message string) error {
	return s.store.Update(ctx, state.NamespaceRenderJobs, jobID, func(data []byte, ok bool) (any, error) {
		if !ok {
			return nil, ErrJobNotFound
		}
		var job model.RenderJob
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("decode render job: %w", err)
		}
		if job.Status.Terminal() {
			return nil, ErrJobTerminal
		}

		if progress < 0 {
			progress = 0
		}
		if progress > 100 {
			progress = 100
		}
		if progress < job.Progress {
			progress = job.Progress
		}

		millis := time.Now().UnixMilli()
		if job.Status == model.JobStatusQueued {
			job.Status = model.JobStatusProcessing
			job.StartedAt = &millis
		}
		job.WorkerDriven = true
		job.Progress = progress
		job.Message = message
		job.UpdatedAt = millis
		return job, nil
	})
}

// CompleteJob marks the job completed with its output URL. Completing an
// already-completed job is a no-op so duplicate worker callbacks are safe.
func (s *RenderService) CompleteJob(ctx context.Context, jobID, outputURL string) error {
	return s.store.Update(ctx, state.NamespaceRenderJobs, jobID, func(data []byte, ok bool) (any, error) {
		if !ok {
			return nil, ErrJobNotFound
		}
		var job model.RenderJob
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("decode render job: %w", err)
		}
		if job.Status == model.JobStatusCompleted {
			return nil, nil
		}
		if job.Status == model.JobStatusFailed {
			return nil, ErrJobTerminal
		}

		millis := time.Now().UnixMilli()
		if job.StartedAt == nil {
			job.StartedAt = &millis
		}
		job.WorkerDriven = true
		job.Status = model.JobStatusCompleted
		job.Progress = 100
		job.OutputURL = outputURL
		job.Message = "Render completed"
		job.CompletedAt = &millis
		job.UpdatedAt = millis
		return job, nil
	})
}

// FailJob marks the job failed. A queued job passes through processing first
// so the state machine never records a queued-to-failed jump.
func (s *RenderService) FailJob(ctx context.Context, jobID, errMsg string) error {
	return s.store.Update(ctx, state.NamespaceRenderJobs, jobID, func(data []byte, ok bool) (any, error) {
		if !ok {
			return nil, ErrJobNotFound
		}
		var job model.RenderJob
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("decode render job: %w", err)
		}
		if job.Status == model.JobStatusFailed {
			return nil, nil
		}
		if job.Status == model.JobStatusCompleted {
			return nil, ErrJobTerminal
		}

		millis := time.Now().UnixMilli()
		if job.StartedAt == nil {
			job.StartedAt = &millis
		}
		job.WorkerDriven = true
		job.Status = model.JobStatusFailed
		job.Error = errMsg
		job.CompletedAt = &millis
		job.UpdatedAt = millis
		return job, nil
	})
}

// ResolveDownload maps a job to its variant's rendered assets.
func (s *RenderService) ResolveDownload(ctx context.Context, jobID string) (*model.DownloadResponse, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, job.ProjectID)
	if err != nil {
		return nil, err
	}
	variant, ok := project.VariantByID(job.VariantID)
	if !ok {
		return nil, ErrVariantNotFound
	}

	images := make([]string, 0, len(variant.Scenes))
	for _, scene := range variant.Scenes {
		if scene.ImageURL != "" {
			images = append(images, scene.ImageURL)
		}
	}

	resp := &model.DownloadResponse{
		JobID:       jobID,
		ProjectID:   job.ProjectID,
		VariantID:   job.VariantID,
		AspectRatio: variant.AspectRatio,
		Status:      "completed",
		Type:        "preview",
		Images:      images,
		Scenes:      variant.Scenes,
	}
	if project.BrandProfile != nil {
		resp.BrandName = project.BrandProfile.BrandName
	}
	return resp, nil
}

func (s *RenderService) loadProject(ctx context.Context, projectID string) (*model.Project, error) {
	data, ok, err := s.store.Get(ctx, state.NamespaceProjects, projectID)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	if !ok {
		return nil, ErrProjectNotFound
	}
	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &project, nil
}

func (s *RenderService) loadJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	data, ok, err := s.store.Get(ctx, state.NamespaceRenderJobs, jobID)
	if err != nil {
		return nil, fmt.Errorf("read render job: %w", err)
	}
	if !ok {
		return nil, ErrJobNotFound
	}
	var job model.RenderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode render job: %w", err)
	}
	return &job, nil
}
