// Package cli implements the taskflow command-line surface: global flags,
// configuration loading and database wiring shared by every subcommand in
// internal/cli/commands.
//
// Grounded on the teacher's internal/cli/root.go: the same cobra root
// command plus viper-bound persistent flags, pterm color/verbose toggles,
// and a project-root search so the CLI can be invoked from any subdirectory.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the global CLI configuration (spec.md 9: "a thin CLI/HTTP
// shell exercising the engine end to end").
type Config struct {
	JSON       bool
	NoColor    bool
	Verbose    bool
	ConfigFile string
	DBPath     string
}

// GlobalConfig is the shared configuration instance.
var GlobalConfig = &Config{}

// RootCmd is the base command when taskflow is called without subcommands.
var RootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "taskflow - a work-item status/dependency orchestration engine",
	Long: `taskflow drives Project/Feature/Task work items through a configurable
status workflow, tracks dependency edges between tasks, and cascades
completion up the hierarchy automatically.`,
	Version: "dev",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if GlobalConfig.NoColor {
			pterm.DisableColor()
		}
		if GlobalConfig.Verbose {
			pterm.EnableDebugMessages()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return CloseDB()
	},
}

// SetVersion sets the version string from build-time injection.
func SetVersion(version string) {
	RootCmd.Version = version
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&GlobalConfig.JSON, "json", false, "Output in JSON format (machine-readable)")
	RootCmd.PersistentFlags().BoolVar(&GlobalConfig.NoColor, "no-color", false, "Disable colored output")
	RootCmd.PersistentFlags().BoolVarP(&GlobalConfig.Verbose, "verbose", "v", false, "Enable verbose/debug output")
	RootCmd.PersistentFlags().StringVar(&GlobalConfig.ConfigFile, "config", "", "Config file path (default: .taskflowconfig.json)")
	RootCmd.PersistentFlags().StringVar(&GlobalConfig.DBPath, "db", "taskflow.db", "Database file path")

	for _, pair := range [][2]string{{"json", "json"}, {"no-color", "no-color"}, {"verbose", "verbose"}, {"db", "db"}} {
		if err := viper.BindPFlag(pair[0], RootCmd.PersistentFlags().Lookup(pair[1])); err != nil {
			panic(err)
		}
	}
}

// FindProjectRoot walks up the directory tree looking for a
// .taskflowconfig.json, a taskflow.db, or a .git directory, falling back to
// the current working directory.
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	currentDir := wd
	for {
		for _, marker := range []string{".taskflowconfig.json", "taskflow.db", ".git"} {
			if _, err := os.Stat(filepath.Join(currentDir, marker)); err == nil {
				return currentDir, nil
			}
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return wd, nil
		}
		currentDir = parentDir
	}
}

func initConfig() error {
	if GlobalConfig.ConfigFile == "" {
		projectRoot, err := FindProjectRoot()
		if err != nil {
			return fmt.Errorf("failed to find project root: %w", err)
		}
		if GlobalConfig.Verbose {
			pterm.Debug.Printf("Project root: %s\n", projectRoot)
		}
		viper.AddConfigPath(projectRoot)
		viper.SetConfigType("json")
		viper.SetConfigName(".taskflowconfig")

		if GlobalConfig.DBPath == "taskflow.db" {
			GlobalConfig.DBPath = filepath.Join(projectRoot, "taskflow.db")
		}
	} else {
		viper.SetConfigFile(GlobalConfig.ConfigFile)
	}

	viper.SetEnvPrefix("TASKFLOW")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else if GlobalConfig.Verbose {
		pterm.Debug.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}

	GlobalConfig.JSON = viper.GetBool("json")
	GlobalConfig.NoColor = viper.GetBool("no-color")
	GlobalConfig.Verbose = viper.GetBool("verbose")
	if viper.IsSet("db") {
		GlobalConfig.DBPath = viper.GetString("db")
	}

	return nil
}

// GetDBPath returns the database file path, ensuring its parent directory exists.
func GetDBPath() (string, error) {
	dbPath := GlobalConfig.DBPath
	if !filepath.IsAbs(dbPath) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dbPath = filepath.Join(wd, dbPath)
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}

// GetFlowConfigPath returns the Flow Configuration document path next to
// the project root, if one is present; commands fall back to
// flowconfig.Default() when it isn't (see internal/cli's service wiring).
func GetFlowConfigPath() (string, error) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		return "", err
	}
	for _, name := range []string{".taskflow-workflow.yaml", ".taskflow-workflow.yml", ".taskflow-workflow.json"} {
		candidate := filepath.Join(projectRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// OutputJSON outputs data in JSON format.
func OutputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// OutputTable outputs data as a formatted table (for humans).
func OutputTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		pterm.Info.Println("No results found")
		return
	}

	tableData := pterm.TableData{headers}
	for _, row := range rows {
		tableData = append(tableData, row)
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
	}
}

// Success prints a success message.
func Success(message string) {
	if !GlobalConfig.NoColor {
		pterm.Success.Println(message)
	} else {
		fmt.Println("✓", message)
	}
}

// Error prints an error message.
func Error(message string) {
	if !GlobalConfig.NoColor {
		pterm.Error.Println(message)
	} else {
		fmt.Fprintln(os.Stderr, "✗", message)
	}
}

// Warning prints a warning message.
func Warning(message string) {
	if !GlobalConfig.NoColor {
		pterm.Warning.Println(message)
	} else {
		fmt.Println("⚠", message)
	}
}

// Info prints an info message.
func Info(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if !GlobalConfig.NoColor {
		pterm.Info.Println(message)
	} else {
		fmt.Println("ℹ", message)
	}
}
