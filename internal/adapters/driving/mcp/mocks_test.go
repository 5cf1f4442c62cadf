package mcp

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp     *domain.SearchResponse
	lastOpts domain.SearchOptions
	err      error
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.resp, nil
}

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	status   *domain.SyncStatus
	statuses []domain.SyncStatus
	err      error
}

func (m *mockSyncOrchestrator) Run(_ context.Context, sourceID string, mode domain.SyncMode) (*domain.SyncRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SyncRun{SourceID: sourceID, Mode: mode}, nil
}

func (m *mockSyncOrchestrator) RunAll(_ context.Context, _ domain.SyncMode) ([]*domain.SyncRun, error) {
	return nil, m.err
}

func (m *mockSyncOrchestrator) Status(_ context.Context, _ string) (*domain.SyncStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
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

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	source  *domain.Source
	err     error
}

func (m *mockSourceService) Add(_ context.Context, source domain.Source) (*domain.Source, error) {
	return &source, m.err
}

func (m *mockSourceService) Get(_ context.Context, _ string) (*domain.Source, error) {
	return m.source, m.err
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockSourceService) SetEnabled(_ context.Context, _ string, _ bool) error {
	return m.err
}

// mockFeedbackRecorder is a mock implementation of driving.FeedbackRecorder.
type mockFeedbackRecorder struct {
	recorded *domain.Feedback
	err      error
}

func (m *mockFeedbackRecorder) Record(_ context.Context, fb domain.Feedback) (*domain.Feedback, error) {
	if m.err != nil {
		return nil, m.err
	}
	fb.ID = "fb-1"
	m.recorded = &fb
	return &fb, nil
}

func (m *mockFeedbackRecorder) List(_ context.Context, _ int) ([]domain.Feedback, error) {
	return nil, m.err
}
