package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

const projectMaxAge = 24 * time.Hour

// ProjectService owns project lifecycle: creation, status reads, analytics
// reads and the scheduled cleanup sweep.
type ProjectService struct {
	store  state.Store
	engine *bus.Engine
}

func NewProjectService(store state.Store, engine *bus.Engine) *ProjectService {
	return &ProjectService{store: store, engine: engine}
}

// CreateProject stores the pending-project skeleton and kicks off the
// pipeline. The skeleton is written before the event goes out so a status
// poll racing the first step sees the project.
func (s *ProjectService) CreateProject(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	ratios := req.AspectRatios
	if len(ratios) == 0 {
		ratios = []model.AspectRatio{model.AspectLandscape}
	}
	duration := req.Duration
	if duration == 0 {
		duration = 5
	}

	url := req.URL
	if url == "" {
		url = fmt.Sprintf("https://maps.google.com/maps?cid=%s", req.GoogleMapsID)
	}

	projectID := "proj_" + uuid.New().String()

	variants := make([]model.Variant, 0, len(ratios))
	refs := make([]model.VariantRef, 0, len(ratios))
	for _, ratio := range ratios {
		variantID := model.VariantIDFor(projectID, ratio)
		variants = append(variants, model.Variant{
			VariantID:   variantID,
			AspectRatio: ratio,
			Status:      model.VariantStatusPending,
		})
		refs = append(refs, model.VariantRef{
			VariantID:   variantID,
			AspectRatio: ratio,
			Status:      model.VariantStatusPending,
		})
	}

	project := model.Project{
		ProjectID: projectID,
		URL:       url,
		Variants:  variants,
		Status:    model.ProjectStatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.store.Set(ctx, state.NamespaceProjects, projectID, project); err != nil {
		return nil, fmt.Errorf("store project skeleton: %w", err)
	}

	if err := s.engine.Emit(ctx, event.TopicGenerationStarted, event.GenerationStarted{
		ProjectID:    projectID,
		URL:          url,
		AspectRatios: ratios,
		BrandHints:   req.BrandHints,
		Duration:     duration,
	}); err != nil {
		return nil, fmt.Errorf("start generation: %w", err)
	}

	log.Printf("[project] ad generation started projectId=%s url=%s variants=%d", projectID, url, len(refs))

	return &model.GenerateResponse{
		ProjectID:     projectID,
		Status:        "processing",
		Variants:      refs,
		EstimatedTime: len(refs) * 30,
		Message:       fmt.Sprintf("Generating %d ad variant(s) for %s", len(refs), url),
	}, nil
}

// GetProject returns the project merged with its analytics results.
func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*model.ProjectResponse, error) {
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

	resp := &model.ProjectResponse{
		Project:   project,
		Analytics: []model.AnalyticsRecord{},
	}
	if report, err := s.ProjectAnalytics(ctx, projectID); err == nil && report != nil {
		resp.Analytics = report.Results
	}
	return resp, nil
}

// ProjectAnalytics returns one project's analytics report, nil when absent.
func (s *ProjectService) ProjectAnalytics(ctx context.Context, projectID string) (*model.AnalyticsReport, error) {
	data, ok, err := s.store.Get(ctx, state.NamespaceAnalytics, projectID)
	if err != nil {
		return nil, fmt.Errorf("read analytics: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var report model.AnalyticsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	return &report, nil
}

// AllAnalytics lists every stored analytics report.
func (s *ProjectService) AllAnalytics(ctx context.Context) (*model.AnalyticsOverview, error) {
	values, err := s.store.List(ctx, state.NamespaceAnalytics)
	if err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}

	overview := &model.AnalyticsOverview{Projects: []model.AnalyticsReport{}}
	for _, raw := range values {
		var report model.AnalyticsReport
		if err := json.Unmarshal(raw, &report); err != nil {
			continue
		}
		overview.Projects = append(overview.Projects, report)
	}
	overview.Count = len(overview.Projects)
	return overview, nil
}

// Journal returns the per-project step outcome log.
func (s *ProjectService) Journal(ctx context.Context, projectID string) ([]bus.JournalEntry, error) {
	return s.engine.Journal(ctx, projectID)
}

// CleanupSweep deletes projects older than 24 hours and announces the sweep.
// Render jobs and audio expire through store TTLs and are left alone.
func (s *ProjectService) CleanupSweep(ctx context.Context) (int, error) {
	values, err := s.store.List(ctx, state.NamespaceProjects)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}

	now := time.Now()
	cleaned := 0
	for _, raw := range values {
		var project model.Project
		if err := json.Unmarshal(raw, &project); err != nil {
			continue
		}
		if project.CreatedAt == 0 {
			continue
		}
		age := now.Sub(time.UnixMilli(project.CreatedAt))
		if age <= projectMaxAge {
			continue
		}
		if err := s.store.Delete(ctx, state.NamespaceProjects, project.ProjectID); err != nil {
			log.Printf("[cleanup] failed to delete project %s: %v", project.ProjectID, err)
			continue
		}
		log.Printf("[cleanup] removed old project projectId=%s age=%s", project.ProjectID, age.Round(time.Minute))
		cleaned++
	}

	if err := s.engine.Emit(ctx, event.TopicCleanupCompleted, event.CleanupCompleted{
		CleanedCount: cleaned,
		Timestamp:    now.UTC().Format(time.RFC3339),
	}); err != nil {
		return cleaned, err
	}
	return cleaned, nil
}
