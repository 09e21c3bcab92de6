package main

import (
	"fmt"
	"os"
	"path/filepath"

	"avport/internal/config"
	"avport/internal/journal"
	"avport/internal/logging"
	"avport/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:               "avport",
		Short:             "Migrate WPF property and event idioms to Avalonia",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	cfgFile  string
	rootDir  string
	logLevel string

	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "avport.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "Workspace root (overrides workspace.root)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if rootDir != "" {
		c.Workspace.Root = rootDir
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}

	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

// loadSolution loads the configured workspace.
func loadSolution() (*workspace.Solution, error) {
	sln, err := workspace.LoadSolution(cfg.Workspace.Root, workspace.LoadOptions{Exclude: cfg.Workspace.Exclude})
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	logger.Debug("workspace loaded",
		zap.String("root", sln.Root),
		zap.String("solution", sln.Path),
		zap.Int("projects", len(sln.Projects)))
	return sln, nil
}

// openJournal opens the run journal; relative paths are under the workspace root.
func openJournal() (*journal.SQLiteStore, error) {
	path := cfg.Journal.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Workspace.Root, path)
	}
	return journal.Open(path)
}
