package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

var (
	sourceName       string
	sourceConfig     []string
	sourceLangs      []string
	sourceCategories []string
	sourceDisabled   bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage document sources",
	Long:  `Add, list, enable, disable and remove document sources.`,
	RunE:  runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add [type]",
	Short: "Add a new source",
	Long: `Registers a new source of the given connector type. Connector
configuration is passed as repeated --config key=value pairs; secrets
left out of --config are prompted for without echo. The connector is
probed before the source is saved, so a broken credential fails here
rather than at the first scheduled sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesAdd,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourcesList,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove [source-id]",
	Short: "Remove a source and its indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable [source-id]",
	Short: "Enable scheduled syncing for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesEnable,
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable [source-id]",
	Short: "Disable scheduled syncing for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesDisable,
}

var sourcesTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List available connector types",
	RunE:  runSourcesTypes,
}

func init() {
	sourcesAddCmd.Flags().StringVar(&sourceName, "name", "", "display name for the source")
	sourcesAddCmd.Flags().StringArrayVar(&sourceConfig, "config", nil, "connector config as key=value, repeatable")
	sourcesAddCmd.Flags().StringSliceVar(&sourceLangs, "lang", nil, "admit only these language codes")
	sourcesAddCmd.Flags().StringSliceVar(&sourceCategories, "category", nil, "admit only these content categories")
	sourcesAddCmd.Flags().BoolVar(&sourceDisabled, "disabled", false, "register without enabling scheduled syncs")

	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	sourcesCmd.AddCommand(sourcesEnableCmd)
	sourcesCmd.AddCommand(sourcesDisableCmd)
	sourcesCmd.AddCommand(sourcesTypesCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// secretConfigKeys maps connector types to the config key prompted for
// without echo when missing.
var secretConfigKeys = map[domain.SourceType]string{
	domain.SourceTypeGitHub: "token",
	domain.SourceTypeWiki:   "token",
	domain.SourceTypeDrive:  "token",
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sourceType := domain.SourceType(args[0])
	config, err := parseConfigPairs(sourceConfig)
	if err != nil {
		return err
	}

	if key, ok := secretConfigKeys[sourceType]; ok && !hasCredential(config) {
		cmd.Printf("Enter %s for %s source: ", key, sourceType)
		secret := readSecret()
		cmd.Println()
		if secret != "" {
			config[key] = secret
		}
	}

	name := sourceName
	if name == "" {
		name = string(sourceType)
	}

	source := domain.Source{
		Type:       sourceType,
		Name:       name,
		Config:     config,
		Languages:  sourceLangs,
		Categories: sourceCategories,
		Enabled:    !sourceDisabled,
	}

	added, err := sourceService.Add(context.Background(), source)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	cmd.Printf("Added source: %s (%s)\n", added.ID, added.Type)
	cmd.Printf("Run 'korpus sync %s' to ingest it now.\n", added.ID)
	return nil
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sources, err := sourceService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No configured sources.")
		cmd.Println("Run 'korpus sources add [type]' to add one.")
		return nil
	}

	cmd.Println("Configured sources:")
	cmd.Println()
	for i := range sources {
		src := &sources[i]
		state := "enabled"
		if !src.Enabled {
			state = "disabled"
		}
		cmd.Printf("  %s\n", src.ID)
		cmd.Printf("    Name: %s\n", src.Name)
		cmd.Printf("    Type: %s (%s)\n", src.Type, state)
		if len(src.Languages) > 0 {
			cmd.Printf("    Languages: %s\n", strings.Join(src.Languages, ", "))
		}
		if len(src.Categories) > 0 {
			cmd.Printf("    Categories: %s\n", strings.Join(src.Categories, ", "))
		}
		cmd.Println()
	}
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	if err := sourceService.Remove(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}

	cmd.Printf("Removed source: %s\n", args[0])
	return nil
}

func runSourcesEnable(cmd *cobra.Command, args []string) error {
	return setSourceEnabled(cmd, args[0], true)
}

func runSourcesDisable(cmd *cobra.Command, args []string) error {
	return setSourceEnabled(cmd, args[0], false)
}

func setSourceEnabled(cmd *cobra.Command, sourceID string, enabled bool) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	if err := sourceService.SetEnabled(context.Background(), sourceID, enabled); err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	if enabled {
		cmd.Printf("Enabled source: %s\n", sourceID)
	} else {
		cmd.Printf("Disabled source: %s\n", sourceID)
	}
	return nil
}

func runSourcesTypes(cmd *cobra.Command, _ []string) error {
	if connectorFactory == nil {
		return errors.New("connector factory not configured")
	}

	types := connectorFactory.SupportedTypes()
	if len(types) == 0 {
		cmd.Println("No connectors available.")
		return nil
	}

	cmd.Println("Available connector types:")
	for _, t := range types {
		cmd.Printf("  %s\n", t)
	}
	return nil
}

// parseConfigPairs turns repeated key=value flags into a config map.
func parseConfigPairs(pairs []string) (map[string]string, error) {
	config := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --config %q, expected key=value", pair)
		}
		config[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return config, nil
}

// hasCredential reports whether the config already carries a secret.
func hasCredential(config map[string]string) bool {
	return config["token"] != "" || config["api_token"] != ""
}

//nolint:errcheck // CLI helper, error ignored for UX
func readSecret() string {
	// Read without echo when stdin is a terminal.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
