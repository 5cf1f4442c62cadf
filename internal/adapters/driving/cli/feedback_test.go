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

func TestFeedbackCmd_Use(t *testing.T) {
	assert.Equal(t, "feedback [result-id] [signal]", feedbackCmd.Use)
}

func TestFeedbackCmd_Short(t *testing.T) {
	assert.Equal(t, "Record relevance feedback on a search result", feedbackCmd.Short)
}

func TestFeedbackCmd_RequiresTwoArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "chunk-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestFeedbackCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	feedbackService = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "chunk-1", "useful"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "feedback service not configured")
}

func TestFeedbackCmd_RecordsSignal(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "chunk-1", "useful"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Recorded useful for chunk-1.")
}

func TestFeedbackCmd_UppercaseSignalIsNormalised(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "chunk-1", "CLICK"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Recorded click for chunk-1.")
}

func TestFeedbackCmd_UnknownChunk(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	feedbackService = &mockFeedbackRecorder{err: domain.ErrNotFound}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "chunk-gone", "useful"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no indexed chunk with id chunk-gone")
}

func TestFeedbackCmd_RecordError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	feedbackService = &mockFeedbackRecorder{err: errors.New("store unavailable")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "chunk-1", "useful"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record feedback: store unavailable")
}

func TestFeedbackListCmd_ListsEntries(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	recorded := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	feedbackService = &mockFeedbackRecorder{
		entries: []domain.Feedback{
			{
				ID:         "fb-1",
				ChunkID:    "chunk-1",
				Query:      "release notes",
				Signal:     domain.FeedbackUseful,
				RecordedAt: recorded,
			},
			{ID: "fb-2", ChunkID: "chunk-2", Signal: domain.FeedbackClick, RecordedAt: recorded},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "list"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Recent feedback:")
	assert.Contains(t, out, "chunk chunk-1")
	assert.Contains(t, out, "query: release notes")
	assert.Contains(t, out, "chunk chunk-2")
}

func TestFeedbackListCmd_NoEntries(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"feedback", "list"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No feedback recorded.")
}

func TestFeedbackListCmd_HasLimitFlag(t *testing.T) {
	flag := feedbackListCmd.Flags().Lookup("limit")

	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "20", flag.DefValue)
}
