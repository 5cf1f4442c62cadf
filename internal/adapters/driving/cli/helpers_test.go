package cli

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// mockSearchService implements driving.SearchService.
type mockSearchService struct {
	resp *domain.SearchResponse
	err  error
}

func (m *mockSearchService) Search(_ context.Context, _ string, _ domain.SearchOptions) (*domain.SearchResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.resp, nil
}

// mockSyncOrchestrator implements driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	run      *domain.SyncRun
	runs     []*domain.SyncRun
	status   *domain.SyncStatus
	statuses []domain.SyncStatus
	lastMode domain.SyncMode
	err      error
}

func (m *mockSyncOrchestrator) Run(_ context.Context, sourceID string, mode domain.SyncMode) (*domain.SyncRun, error) {
	m.lastMode = mode
	if m.err != nil {
		return nil, m.err
	}
	if m.run != nil {
		return m.run, nil
	}
	return &domain.SyncRun{ID: "run-1", SourceID: sourceID, Mode: mode, Status: domain.RunStatusSucceeded}, nil
}

func (m *mockSyncOrchestrator) RunAll(_ context.Context, mode domain.SyncMode) ([]*domain.SyncRun, error) {
	m.lastMode = mode
	if m.err != nil {
		return nil, m.err
	}
	return m.runs, nil
}

func (m *mockSyncOrchestrator) Status(_ context.Context, sourceID string) (*domain.SyncStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status != nil {
		return m.status, nil
	}
	return &domain.SyncStatus{SourceID: sourceID}, nil
}

func (m *mockSyncOrchestrator) StatusAll(_ context.Context) ([]domain.SyncStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.statuses, nil
}

func (m *mockSyncOrchestrator) Cancel(_ string) bool {
	return false
}

// mockSourceService implements driving.SourceService.
type mockSourceService struct {
	sources    []domain.Source
	added      *domain.Source
	setEnabled map[string]bool
	err        error
}

func (m *mockSourceService) Add(_ context.Context, source domain.Source) (*domain.Source, error) {
	if m.err != nil {
		return nil, m.err
	}
	if source.ID == "" {
		source.ID = "src-new"
	}
	m.added = &source
	return &source, nil
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.sources {
		if m.sources[i].ID == id {
			return &m.sources[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sources, nil
}

func (m *mockSourceService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockSourceService) SetEnabled(_ context.Context, id string, enabled bool) error {
	if m.err != nil {
		return m.err
	}
	if m.setEnabled == nil {
		m.setEnabled = make(map[string]bool)
	}
	m.setEnabled[id] = enabled
	return nil
}

// mockFeedbackRecorder implements driving.FeedbackRecorder.
type mockFeedbackRecorder struct {
	entries []domain.Feedback
	err     error
}

func (m *mockFeedbackRecorder) Record(_ context.Context, fb domain.Feedback) (*domain.Feedback, error) {
	if m.err != nil {
		return nil, m.err
	}
	fb.ID = "fb-1"
	return &fb, nil
}

func (m *mockFeedbackRecorder) List(_ context.Context, _ int) ([]domain.Feedback, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// mockScheduler implements driving.Scheduler.
type mockScheduler struct {
	tasks   []domain.ScheduledTask
	results []domain.TaskResult
	err     error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() {}

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, m.err
}

func (m *mockScheduler) History(_ context.Context, _ int) ([]domain.TaskResult, error) {
	return m.results, m.err
}

// mockConnectorFactory implements driven.ConnectorFactory.
type mockConnectorFactory struct {
	types []domain.SourceType
}

func (m *mockConnectorFactory) Create(_ context.Context, _ domain.Source) (driven.Connector, error) {
	return nil, domain.ErrUnsupportedType
}

func (m *mockConnectorFactory) SupportedTypes() []domain.SourceType {
	return m.types
}

// setupTestServices wires standard mocks into every service variable
// and returns a cleanup restoring the previous wiring.
func setupTestServices() func() {
	oldSearch := searchService
	oldSync := syncOrchestrator
	oldSources := sourceService
	oldFeedback := feedbackService
	oldScheduler := schedulerService
	oldFactory := connectorFactory
	oldSettings := appSettings

	searchService = &mockSearchService{
		resp: &domain.SearchResponse{
			Results: []domain.SearchResult{
				{
					ChunkID:    "chunk-1",
					DocumentID: "doc-1",
					SourceID:   "src-1",
					Title:      "Release notes",
					URI:        "wiki://releases",
					Snippet:    "the release went out on time",
					Score:      0.91,
				},
			},
		},
	}
	syncOrchestrator = &mockSyncOrchestrator{}
	sourceService = &mockSourceService{
		sources: []domain.Source{
			{ID: "src-1", Type: domain.SourceTypeFilesystem, Name: "notes", Enabled: true},
		},
	}
	feedbackService = &mockFeedbackRecorder{}
	schedulerService = &mockScheduler{}
	connectorFactory = &mockConnectorFactory{
		types: []domain.SourceType{domain.SourceTypeFilesystem, domain.SourceTypeGitHub},
	}
	appSettings = domain.DefaultSettings()

	return func() {
		searchService = oldSearch
		syncOrchestrator = oldSync
		sourceService = oldSources
		feedbackService = oldFeedback
		schedulerService = oldScheduler
		connectorFactory = oldFactory
		appSettings = oldSettings
	}
}
