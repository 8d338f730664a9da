package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func seedProject(t *testing.T, store state.Store, projectID, variantID string) {
	t.Helper()
	project := model.Project{
		ProjectID: projectID,
		URL:       "https://example.com",
		Status:    model.ProjectStatusReady,
		BrandProfile: &model.BrandProfile{
			BrandName:      "Acme",
			Tagline:        "Quality products and services",
			Tone:           model.ToneProfessional,
			Audience:       "General consumers",
			Industry:       "Business",
			KeyMessages:    []string{"Quality products and services"},
			PrimaryColor:   "#2563eb",
			SecondaryColor: "#1e40af",
			AccentColor:    "#f59e0b",
			FontStyle:      model.FontModern,
			VisualStyle:    model.VisualMinimalist,
			CallToAction:   "Learn More",
		},
		Variants: []model.Variant{{
			VariantID:   variantID,
			AspectRatio: model.AspectLandscape,
			Status:      model.VariantStatusReady,
			Scenes: []model.Scene{
				{SceneNumber: 1, Duration: 2.5, VisualDescription: "Logo reveal", Voiceover: "Hello", Transition: model.TransitionFade, ImageURL: "https://img.example/1.png"},
				{SceneNumber: 2, Duration: 2.5, VisualDescription: "CTA", Voiceover: "Learn more", Transition: model.TransitionFade},
			},
			Music: model.Music{Mood: "upbeat", Tempo: "fast"},
		}},
		CreatedAt: time.Now().UnixMilli(),
	}
	require.NoError(t, store.Set(context.Background(), state.NamespaceProjects, projectID, project))
}

func seedJob(t *testing.T, store state.Store, job model.RenderJob) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), state.NamespaceRenderJobs, job.JobID, job))
}

func readJob(t *testing.T, store state.Store, jobID string) model.RenderJob {
	t.Helper()
	data, ok, err := store.Get(context.Background(), state.NamespaceRenderJobs, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	var job model.RenderJob
	require.NoError(t, json.Unmarshal(data, &job))
	return job
}

func TestStartRender_QueuesJobAndDispatchTask(t *testing.T) {
	store := state.NewMemoryStore()
	enq := &captureEnqueuer{}
	svc := NewRenderService(store, enq)
	seedProject(t, store, "proj_1", "proj_1-landscape")

	resp, err := svc.StartRender(context.Background(), &model.RenderRequest{
		ProjectID: "proj_1",
		VariantID: "proj_1-landscape",
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusQueued, resp.Status)
	assert.Equal(t, 30, resp.EstimatedTime)
	assert.NotEmpty(t, resp.JobID)

	job := readJob(t, store, resp.JobID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Zero(t, job.Progress)
	assert.True(t, job.Watermark)
	assert.Equal(t, model.QualityPreview, job.Quality)

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeRenderDispatch, enq.tasks[0].Type())

	var payload model.RenderDispatchPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, resp.JobID, payload.JobID)
	assert.Equal(t, "Acme", payload.BrandProfile.BrandName)
	assert.Len(t, payload.Scenes, 2)
}

func TestStartRender_HDQualityEstimate(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)
	seedProject(t, store, "proj_hd", "proj_hd-landscape")

	watermark := false
	resp, err := svc.StartRender(context.Background(), &model.RenderRequest{
		ProjectID: "proj_hd",
		VariantID: "proj_hd-landscape",
		Quality:   model.QualityHD,
		Watermark: &watermark,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, resp.EstimatedTime)

	job := readJob(t, store, resp.JobID)
	assert.False(t, job.Watermark)
	assert.Equal(t, model.QualityHD, job.Quality)
}

func TestStartRender_UnknownProjectAndVariant(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)
	seedProject(t, store, "proj_1", "proj_1-landscape")

	_, err := svc.StartRender(context.Background(), &model.RenderRequest{ProjectID: "proj_x", VariantID: "v"})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.StartRender(context.Background(), &model.RenderRequest{ProjectID: "proj_1", VariantID: "proj_1-portrait"})
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestGetStatus_UnknownJob(t *testing.T) {
	svc := NewRenderService(state.NewMemoryStore(), nil)

	_, err := svc.GetStatus(context.Background(), "job_missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGetStatus_SimulatesProgressFromElapsedTime(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	// Created 15s ago: halfway through the 30s simulation window.
	seedJob(t, store, model.RenderJob{
		JobID:     "job_sim",
		ProjectID: "proj_1",
		VariantID: "proj_1-landscape",
		Quality:   model.QualityPreview,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().Add(-15 * time.Second).UnixMilli(),
	})

	resp, err := svc.GetStatus(context.Background(), "job_sim")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, resp.Status)
	assert.InDelta(t, 50, resp.Progress, 5)
	assert.Nil(t, resp.OutputURL)

	job := readJob(t, store, "job_sim")
	require.NotNil(t, job.StartedAt)
}

func TestGetStatus_FreshJobStaysQueued(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_fresh",
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UnixMilli(),
	})

	resp, err := svc.GetStatus(context.Background(), "job_fresh")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, resp.Status)
	assert.Less(t, resp.Progress, 10)
}

func TestGetStatus_CompletesAfterSimWindow(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_done",
		Status:    model.JobStatusProcessing,
		Progress:  80,
		CreatedAt: time.Now().Add(-40 * time.Second).UnixMilli(),
	})

	resp, err := svc.GetStatus(context.Background(), "job_done")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, resp.Status)
	assert.Equal(t, 100, resp.Progress)
	require.NotNil(t, resp.OutputURL)
	assert.Equal(t, "/api/download/job_done", *resp.OutputURL)

	job := readJob(t, store, "job_done")
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, "Render completed", job.Message)
}

func TestGetStatus_NeverDecreasesProgress(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	// Worker-free job whose stored progress already outruns the elapsed-time
	// simulation. The poll must keep the higher value.
	seedJob(t, store, model.RenderJob{
		JobID:     "job_mono",
		Status:    model.JobStatusProcessing,
		Progress:  90,
		CreatedAt: time.Now().Add(-6 * time.Second).UnixMilli(),
	})

	resp, err := svc.GetStatus(context.Background(), "job_mono")
	require.NoError(t, err)
	assert.Equal(t, 90, resp.Progress)
}

func TestGetStatus_WorkerDrivenJobIsLeftAlone(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:        "job_wd",
		Status:       model.JobStatusProcessing,
		Progress:     42,
		WorkerDriven: true,
		CreatedAt:    time.Now().Add(-40 * time.Second).UnixMilli(),
	})

	resp, err := svc.GetStatus(context.Background(), "job_wd")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, resp.Status)
	assert.Equal(t, 42, resp.Progress)

	job := readJob(t, store, "job_wd")
	assert.Equal(t, 42, job.Progress)
}

func TestReportProgress_FlipsToWorkerDriven(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_rp",
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UnixMilli(),
	})

	require.NoError(t, svc.ReportProgress(context.Background(), "job_rp", 35, "Encoding video..."))

	job := readJob(t, store, "job_rp")
	assert.True(t, job.WorkerDriven)
	assert.Equal(t, model.JobStatusProcessing, job.Status)
	assert.Equal(t, 35, job.Progress)
	assert.Equal(t, "Encoding video...", job.Message)
	require.NotNil(t, job.StartedAt)
}

func TestReportProgress_ClampsAndStaysMonotonic(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_cl",
		Status:    model.JobStatusProcessing,
		Progress:  60,
		CreatedAt: time.Now().UnixMilli(),
	})

	require.NoError(t, svc.ReportProgress(context.Background(), "job_cl", 20, "late report"))
	assert.Equal(t, 60, readJob(t, store, "job_cl").Progress)

	require.NoError(t, svc.ReportProgress(context.Background(), "job_cl", 250, ""))
	assert.Equal(t, 100, readJob(t, store, "job_cl").Progress)
}

func TestReportProgress_TerminalJobRejected(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_term",
		Status:    model.JobStatusCompleted,
		Progress:  100,
		CreatedAt: time.Now().UnixMilli(),
	})

	err := svc.ReportProgress(context.Background(), "job_term", 50, "")
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestCompleteJob_SetsTerminalState(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_c",
		Status:    model.JobStatusProcessing,
		Progress:  95,
		CreatedAt: time.Now().UnixMilli(),
	})

	require.NoError(t, svc.CompleteJob(context.Background(), "job_c", "/api/download/job_c"))

	job := readJob(t, store, "job_c")
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "/api/download/job_c", job.OutputURL)
	require.NotNil(t, job.CompletedAt)

	// Duplicate callback is a no-op.
	require.NoError(t, svc.CompleteJob(context.Background(), "job_c", "/api/download/other"))
	assert.Equal(t, "/api/download/job_c", readJob(t, store, "job_c").OutputURL)
}

func TestCompleteJob_FailedJobConflicts(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_cf",
		Status:    model.JobStatusFailed,
		CreatedAt: time.Now().UnixMilli(),
	})

	err := svc.CompleteJob(context.Background(), "job_cf", "/api/download/job_cf")
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestFailJob_QueuedJobPassesThroughProcessing(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)

	seedJob(t, store, model.RenderJob{
		JobID:     "job_f",
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UnixMilli(),
	})

	require.NoError(t, svc.FailJob(context.Background(), "job_f", "ffmpeg exited 1"))

	job := readJob(t, store, "job_f")
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "ffmpeg exited 1", job.Error)
	// A queued job never jumps straight to failed without a start mark.
	require.NotNil(t, job.StartedAt)

	// Duplicate failure is idempotent; completing afterwards conflicts.
	require.NoError(t, svc.FailJob(context.Background(), "job_f", "again"))
	assert.ErrorIs(t, svc.CompleteJob(context.Background(), "job_f", "u"), ErrJobTerminal)
}

func TestResolveDownload(t *testing.T) {
	store := state.NewMemoryStore()
	svc := NewRenderService(store, nil)
	seedProject(t, store, "proj_dl", "proj_dl-landscape")
	seedJob(t, store, model.RenderJob{
		JobID:     "job_dl",
		ProjectID: "proj_dl",
		VariantID: "proj_dl-landscape",
		Status:    model.JobStatusCompleted,
		Progress:  100,
		CreatedAt: time.Now().UnixMilli(),
	})

	resp, err := svc.ResolveDownload(context.Background(), "job_dl")
	require.NoError(t, err)
	assert.Equal(t, "proj_dl", resp.ProjectID)
	assert.Equal(t, model.AspectLandscape, resp.AspectRatio)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "preview", resp.Type)
	assert.Equal(t, "Acme", resp.BrandName)
	// Only scenes with a generated image contribute to the image list.
	assert.Equal(t, []string{"https://img.example/1.png"}, resp.Images)
	assert.Len(t, resp.Scenes, 2)

	_, err = svc.ResolveDownload(context.Background(), "job_missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
