package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// resetSourceFlags clears the add-command flag variables so values
// parsed by earlier tests do not leak into the next execution.
func resetSourceFlags() {
	sourceName = ""
	sourceConfig = nil
	sourceLangs = nil
	sourceCategories = nil
	sourceDisabled = false
}

func TestSourcesCmd_Use(t *testing.T) {
	assert.Equal(t, "sources", sourcesCmd.Use)
}

func TestSourcesCmd_Short(t *testing.T) {
	assert.Equal(t, "Manage document sources", sourcesCmd.Short)
}

func TestSourcesCmd_RegistersSubcommands(t *testing.T) {
	expected := []string{"add", "list", "remove", "enable", "disable", "types"}

	names := make(map[string]bool)
	for _, sub := range sourcesCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestSourcesAddCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	resetSourceFlags()
	defer resetSourceFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "add"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSourcesAddCmd_AddsFilesystemSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	resetSourceFlags()
	defer resetSourceFlags()

	mock := &mockSourceService{}
	sourceService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{
		"sources", "add", "filesystem",
		"--name", "notes",
		"--config", "root=/srv/notes",
		"--lang", "en",
		"--disabled",
	})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	require.NotNil(t, mock.added)
	assert.Equal(t, domain.SourceTypeFilesystem, mock.added.Type)
	assert.Equal(t, "notes", mock.added.Name)
	assert.Equal(t, "/srv/notes", mock.added.Config["root"])
	assert.Equal(t, []string{"en"}, mock.added.Languages)
	assert.False(t, mock.added.Enabled)

	out := buf.String()
	assert.Contains(t, out, "Added source: src-new (filesystem)")
	assert.Contains(t, out, "Run 'korpus sync src-new' to ingest it now.")
}

func TestSourcesAddCmd_NameDefaultsToType(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	resetSourceFlags()
	defer resetSourceFlags()

	mock := &mockSourceService{}
	sourceService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "add", "filesystem", "--config", "root=/srv/notes"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	require.NotNil(t, mock.added)
	assert.Equal(t, "filesystem", mock.added.Name)
	assert.True(t, mock.added.Enabled)
}

func TestSourcesAddCmd_SkipsPromptWhenTokenGiven(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	resetSourceFlags()
	defer resetSourceFlags()

	mock := &mockSourceService{}
	sourceService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{
		"sources", "add", "github",
		"--config", "owner=custodia-labs",
		"--config", "repo=korpus",
		"--config", "token=ghp-test",
	})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	require.NotNil(t, mock.added)
	assert.Equal(t, "ghp-test", mock.added.Config["token"])
	assert.Equal(t, "custodia-labs", mock.added.Config["owner"])
	assert.NotContains(t, buf.String(), "Enter token")
}

func TestSourcesAddCmd_InvalidConfigPair(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	resetSourceFlags()
	defer resetSourceFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "add", "filesystem", "--config", "rootonly"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --config "rootonly"`)
}

func TestSourcesAddCmd_AddError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	resetSourceFlags()
	defer resetSourceFlags()

	sourceService = &mockSourceService{err: domain.ErrAlreadyExists}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "add", "filesystem", "--config", "root=/srv/notes"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add source")
}

func TestSourcesListCmd_ListsSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	sourceService = &mockSourceService{
		sources: []domain.Source{
			{
				ID:        "src-1",
				Type:      domain.SourceTypeFilesystem,
				Name:      "notes",
				Enabled:   true,
				Languages: []string{"en", "de"},
			},
			{ID: "src-2", Type: domain.SourceTypeWiki, Name: "handbook", Enabled: false},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "list"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Configured sources:")
	assert.Contains(t, out, "src-1")
	assert.Contains(t, out, "Name: notes")
	assert.Contains(t, out, "Type: filesystem (enabled)")
	assert.Contains(t, out, "Languages: en, de")
	assert.Contains(t, out, "Type: wiki (disabled)")
}

func TestSourcesCmd_DefaultsToList(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Configured sources:")
}

func TestSourcesListCmd_NoSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	sourceService = &mockSourceService{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "list"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "No configured sources.")
	assert.Contains(t, out, "Run 'korpus sources add [type]' to add one.")
}

func TestSourcesListCmd_ListError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	sourceService = &mockSourceService{err: errors.New("store unavailable")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "list"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list sources")
}

func TestSourcesRemoveCmd_RemovesSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "remove", "src-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Removed source: src-1")
}

func TestSourcesRemoveCmd_RemoveError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	sourceService = &mockSourceService{err: domain.ErrNotFound}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "remove", "missing"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove source")
}

func TestSourcesEnableCmd_EnablesSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mock := &mockSourceService{}
	sourceService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "enable", "src-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.True(t, mock.setEnabled["src-1"])
	assert.Contains(t, buf.String(), "Enabled source: src-1")
}

func TestSourcesDisableCmd_DisablesSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mock := &mockSourceService{}
	sourceService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "disable", "src-1"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	enabled, ok := mock.setEnabled["src-1"]
	require.True(t, ok)
	assert.False(t, enabled)
	assert.Contains(t, buf.String(), "Disabled source: src-1")
}

func TestSourcesTypesCmd_ListsConnectorTypes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources", "types"})
	defer func() { rootCmd.SetArgs(nil) }()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Available connector types:")
	assert.Contains(t, out, "filesystem")
	assert.Contains(t, out, "github")
}

func TestParseConfigPairs(t *testing.T) {
	t.Run("parses key value pairs", func(t *testing.T) {
		config, err := parseConfigPairs([]string{"root=/srv/notes", "max_file_bytes=1048576"})

		require.NoError(t, err)
		assert.Equal(t, "/srv/notes", config["root"])
		assert.Equal(t, "1048576", config["max_file_bytes"])
	})

	t.Run("trims whitespace around keys and values", func(t *testing.T) {
		config, err := parseConfigPairs([]string{" owner = custodia-labs "})

		require.NoError(t, err)
		assert.Equal(t, "custodia-labs", config["owner"])
	})

	t.Run("keeps equals signs inside values", func(t *testing.T) {
		config, err := parseConfigPairs([]string{"token=abc=def"})

		require.NoError(t, err)
		assert.Equal(t, "abc=def", config["token"])
	})

	t.Run("rejects pairs without equals sign", func(t *testing.T) {
		_, err := parseConfigPairs([]string{"noequals"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected key=value")
	})

	t.Run("rejects blank keys", func(t *testing.T) {
		_, err := parseConfigPairs([]string{"=value"})

		require.Error(t, err)
	})
}

func TestHasCredential(t *testing.T) {
	assert.False(t, hasCredential(map[string]string{}))
	assert.False(t, hasCredential(map[string]string{"owner": "custodia-labs"}))
	assert.True(t, hasCredential(map[string]string{"token": "ghp-test"}))
	assert.True(t, hasCredential(map[string]string{"api_token": "atl-test"}))
}
