package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/internal/state"
	ws "github.com/narriq/api/internal/websocket"
)

// newTestApp wires the API surface onto an in-memory store with no external
// providers and no queue, the same degraded mode main.go runs without Redis.
func newTestApp(t *testing.T) (*fiber.App, state.Store) {
	t.Helper()

	store := state.NewMemoryStore()
	validate := validator.New()
	engine := bus.New(store, validate)

	hub := ws.NewHub()
	go hub.Run()

	projectService := service.NewProjectService(store, engine)
	renderService := service.NewRenderService(store, nil)
	storyboardService := service.NewStoryboardService(nil)

	generateHandler := NewGenerateHandler(projectService, validate)
	projectHandler := NewProjectHandler(projectService)
	renderHandler := NewRenderHandler(renderService, validate)
	workerHandler := NewWorkerHandler(renderService, hub, validate)
	storyboardHandler := NewStoryboardHandler(storyboardService, validate)

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/generate", generateHandler.Generate)
	api.Post("/sketch-to-storyboard", storyboardHandler.FromSketch)
	api.Get("/project/:projectId", projectHandler.Get)
	api.Get("/project/:projectId/events", projectHandler.Events)
	api.Get("/analytics", projectHandler.Analytics)
	api.Get("/analytics/:projectId", projectHandler.Analytics)
	api.Post("/render", renderHandler.Start)
	api.Get("/render-status/:jobId", renderHandler.Status)
	api.Get("/download/:jobId", renderHandler.Download)
	api.Post("/worker/progress/:jobId", workerHandler.Progress)
	api.Post("/worker/complete/:jobId", workerHandler.Complete)
	api.Post("/worker/failed/:jobId", workerHandler.Failed)

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var parsed map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp, parsed
}

func seedRenderJob(t *testing.T, store state.Store, job model.RenderJob) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), state.NamespaceRenderJobs, job.JobID, job))
}

func TestGenerate_RequiresURLOrMapsID(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/generate", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Either url or googleMapsId must be provided", body["error"])
}

func TestGenerate_RejectsBadAspectRatio(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/generate",
		`{"url":"https://example.com","aspectRatios":["4:3"]}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
}

func TestGenerate_RejectsBadURL(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/generate", `{"url":"not-a-url"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerate_StartsProject(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/generate",
		`{"url":"https://example.com","aspectRatios":["16:9","9:16"]}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", body["status"])
	assert.NotEmpty(t, body["projectId"])
	assert.Equal(t, float64(60), body["estimatedTime"])
	variants, ok := body["variants"].([]any)
	require.True(t, ok)
	assert.Len(t, variants, 2)
}

func TestGetProject_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/project/proj_missing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Project not found", body["error"])
	assert.Equal(t, "proj_missing", body["projectId"])
}

func TestGetProject_ReturnsSkeletonWithEmptyAnalytics(t *testing.T) {
	app, _ := newTestApp(t)

	_, created := doJSON(t, app, http.MethodPost, "/api/generate", `{"url":"https://example.com"}`)
	projectID := created["projectId"].(string)

	resp, body := doJSON(t, app, http.MethodGet, "/api/project/"+projectID, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, projectID, body["projectId"])
	analytics, ok := body["analytics"].([]any)
	require.True(t, ok, "analytics must be a list even when empty")
	assert.Empty(t, analytics)
}

func TestProjectEvents_EmptyJournal(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/project/proj_x/events", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "proj_x", body["projectId"])
}

func TestAnalytics_ProjectNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/analytics/proj_missing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Analytics not found", body["error"])
}

func TestAnalytics_Overview(t *testing.T) {
	app, store := newTestApp(t)
	require.NoError(t, store.Set(context.Background(), state.NamespaceAnalytics, "proj_a",
		model.AnalyticsReport{ProjectID: "proj_a"}))

	resp, body := doJSON(t, app, http.MethodGet, "/api/analytics", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
}

func TestRenderStart_ProjectNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/render",
		`{"projectId":"proj_missing","variantId":"v1"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Project not found", body["error"])
}

func TestRenderStart_VariantNotFound(t *testing.T) {
	app, store := newTestApp(t)
	require.NoError(t, store.Set(context.Background(), state.NamespaceProjects, "proj_1", model.Project{
		ProjectID: "proj_1",
		Status:    model.ProjectStatusReady,
		Variants:  []model.Variant{{VariantID: "proj_1-16x9", AspectRatio: model.AspectLandscape}},
		CreatedAt: time.Now().UnixMilli(),
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/api/render",
		`{"projectId":"proj_1","variantId":"proj_1-9x16"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Variant not found", body["error"])
}

func TestRenderStart_QueuesJob(t *testing.T) {
	app, store := newTestApp(t)
	require.NoError(t, store.Set(context.Background(), state.NamespaceProjects, "proj_1", model.Project{
		ProjectID: "proj_1",
		Status:    model.ProjectStatusReady,
		Variants:  []model.Variant{{VariantID: "proj_1-16x9", AspectRatio: model.AspectLandscape}},
		CreatedAt: time.Now().UnixMilli(),
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/api/render",
		`{"projectId":"proj_1","variantId":"proj_1-16x9"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, float64(30), body["estimatedTime"])
	assert.NotEmpty(t, body["jobId"])
}

func TestRenderStatus_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/render-status/job_missing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Render job not found", body["error"])
}

func TestRenderStatus_ReturnsSimulatedProgress(t *testing.T) {
	app, store := newTestApp(t)
	seedRenderJob(t, store, model.RenderJob{
		JobID:     "job_1",
		ProjectID: "proj_1",
		VariantID: "proj_1-16x9",
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().Add(-15 * time.Second).UnixMilli(),
	})

	resp, body := doJSON(t, app, http.MethodGet, "/api/render-status/job_1", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", body["status"])
	assert.Nil(t, body["outputUrl"])
}

func TestDownload_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/download/job_missing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Render job not found", body["error"])
}

func TestWorkerProgress_UpdatesJob(t *testing.T) {
	app, store := newTestApp(t)
	seedRenderJob(t, store, model.RenderJob{
		JobID:     "job_wp",
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UnixMilli(),
	})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/worker/progress/job_wp",
		`{"progress":40,"message":"Encoding video..."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, body := doJSON(t, app, http.MethodGet, "/api/render-status/job_wp", "")
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
	// Worker reports are authoritative: the simulation no longer advances it.
	assert.Equal(t, float64(40), body["progress"])
	assert.Equal(t, "processing", body["status"])
}

func TestWorkerComplete_ThenConflictOnFail(t *testing.T) {
	app, store := newTestApp(t)
	seedRenderJob(t, store, model.RenderJob{
		JobID:     "job_wc",
		Status:    model.JobStatusProcessing,
		Progress:  90,
		CreatedAt: time.Now().UnixMilli(),
	})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/worker/complete/job_wc",
		`{"outputUrl":"/api/download/job_wc","duration":5.0,"fileSize":123456}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, body := doJSON(t, app, http.MethodGet, "/api/render-status/job_wc", "")
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(100), body["progress"])
	assert.Equal(t, "/api/download/job_wc", body["outputUrl"])

	failResp, failBody := doJSON(t, app, http.MethodPost, "/api/worker/failed/job_wc",
		`{"error":"too late"}`)
	assert.Equal(t, http.StatusConflict, failResp.StatusCode)
	errObj, ok := failBody["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", errObj["code"])
}

func TestWorkerFailed_MarksJobFailed(t *testing.T) {
	app, store := newTestApp(t)
	seedRenderJob(t, store, model.RenderJob{
		JobID:     "job_wf",
		Status:    model.JobStatusProcessing,
		Progress:  50,
		CreatedAt: time.Now().UnixMilli(),
	})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/worker/failed/job_wf",
		`{"error":"ffmpeg exited 1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, body := doJSON(t, app, http.MethodGet, "/api/render-status/job_wf", "")
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
	assert.Equal(t, "failed", body["status"])
}

func TestWorkerCallbacks_UnknownJob(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/worker/progress/job_missing",
		`{"progress":10}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Render job not found", body["error"])
}

func TestWorkerProgress_RejectsOutOfRange(t *testing.T) {
	app, store := newTestApp(t)
	seedRenderJob(t, store, model.RenderJob{
		JobID:     "job_rng",
		Status:    model.JobStatusProcessing,
		CreatedAt: time.Now().UnixMilli(),
	})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/worker/progress/job_rng",
		`{"progress":150}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSketchToStoryboard_AlwaysSucceeds(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/sketch-to-storyboard",
		`{"imageData":"abc","hints":{"brandName":"Acme"}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["fallback"])
	storyboard, ok := body["storyboard"].(map[string]any)
	require.True(t, ok)
	scenes, ok := storyboard["scenes"].([]any)
	require.True(t, ok)
	assert.Len(t, scenes, 2)
}

func TestSketchToStoryboard_RequiresImageData(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/sketch-to-storyboard", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
