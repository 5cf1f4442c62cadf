package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status [source-id]", statusCmd.Use)
}

func TestStatusCmd_Short(t *testing.T) {
	assert.Equal(t, "Show sync status for sources", statusCmd.Short)
}

func TestStatusCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	syncOrchestrator = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestStatusCmd_NoConfiguredSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No configured sources.")
}

func TestStatusCmd_SingleSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	lastSync := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	syncOrchestrator = &mockSyncOrchestrator{
		status: &domain.SyncStatus{
			SourceID:   "src-1",
			SourceName: "team wiki",
			Running:    false,
			Cursor:     "page-token-41",
			LastSync:   lastSync,
			LastRun: &domain.SyncRun{
				Status: domain.RunStatusSucceeded,
				Mode:   domain.SyncModeIncremental,
				Stats:  domain.SyncStats{Indexed: 8, Failed: 1},
			},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status", "src-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "team wiki (src-1)")
	assert.Contains(t, out, "State:     idle")
	assert.Contains(t, out, "Cursor:    page-token-41")
	assert.Contains(t, out, "Last full: never")
	assert.Contains(t, out, "Last run:  succeeded (incremental), indexed 8, failed 1")
	assert.NotContains(t, out, "Last sync: never")
}

func TestStatusCmd_RunningSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	syncOrchestrator = &mockSyncOrchestrator{
		status: &domain.SyncStatus{SourceID: "src-1", Running: true},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status", "src-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "src-1 (src-1)")
	assert.Contains(t, out, "State:     syncing now")
}

func TestStatusCmd_AllSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	syncOrchestrator = &mockSyncOrchestrator{
		statuses: []domain.SyncStatus{
			{SourceID: "src-1", SourceName: "notes"},
			{
				SourceID:   "src-2",
				SourceName: "handbook",
				LastRun: &domain.SyncRun{
					Status: domain.RunStatusFailed,
					Mode:   domain.SyncModeFull,
					Error:  "connector init refused",
				},
			},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "notes (src-1)")
	assert.Contains(t, out, "handbook (src-2)")
	assert.Contains(t, out, "Last run:  failed (full), indexed 0, failed 0")
}

func TestStatusCmd_StatusError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	syncOrchestrator = &mockSyncOrchestrator{err: errors.New("state store unavailable")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status", "src-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get status: state store unavailable")
}
