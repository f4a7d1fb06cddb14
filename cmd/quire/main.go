package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	quire "github.com/unowned-ai/quire/pkg"
	"github.com/unowned-ai/quire/pkg/config"
	pkgdb "github.com/unowned-ai/quire/pkg/db"
	"github.com/unowned-ai/quire/pkg/logger"
	"github.com/unowned-ai/quire/pkg/utils"
)

var (
	dbPath     string
	walMode    bool
	syncMode   string
	logLevel   string
	publicFlag bool

	cfg    *config.Config
	appLog *zap.Logger
)

// extraCommands holds constructors for commands compiled in behind build tags.
var extraCommands []func() *cobra.Command

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "quire",
		Short:        "A single-author publishing engine with drafts and ranked full-text search.",
		Version:      fmt.Sprintf("v%s", quire.Version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLog != nil {
				_ = appLog.Sync()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	// Persistent flags override QUIRE_* environment settings when given.
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the database file (default: $QUIRE_DB or a system-specific location)")
	rootCmd.PersistentFlags().BoolVar(&walMode, "wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode")
	rootCmd.PersistentFlags().StringVar(&syncMode, "sync", config.DefaultSyncMode, "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&publicFlag, "public", false, "Act as an anonymous reader: drafts are hidden and writes are refused")

	rootCmd.AddCommand(
		newCompletionCmd(rootCmd),
		newVersionCmd(),
		newDBCmd(),
		newEntriesCmd(),
		newSearchCmd(),
		newReindexCmd(),
		newStatsCmd(),
		newPasswdCmd(),
		newMCPCmd(),
	)
	for _, extra := range extraCommands {
		rootCmd.AddCommand(extra())
	}
	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) error {
	c, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		c.DBPath = dbPath
	}
	if flags.Changed("wal") {
		c.WAL = walMode
	}
	if flags.Changed("sync") {
		c.SyncMode = strings.ToUpper(syncMode)
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}

	l, err := logger.New(c.LogLevel)
	if err != nil {
		return err
	}

	cfg, appLog = c, l
	return nil
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for quire.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(quire completion bash)

  Zsh:
    $ quire completion zsh > "${fpath[1]}/_quire"

  Fish:
    $ quire completion fish > ~/.config/fish/completions/quire.fish

  PowerShell:
    PS> quire completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of quire",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), quire.Version)
		},
	}
}

func newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the quire database",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the quire database schema to the latest version",
		Long: `Connects to the SQLite database and applies any necessary schema migrations to
bring the entries component up to the current application schema version. A missing
database is created and initialized with the latest schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := utils.ResolveAndEnsureDBPath(cfg.DBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Upgrading database at: %s (WAL: %t, Sync: %s)\n", path, cfg.WAL, cfg.SyncMode)

			dbConn, err := pkgdb.OpenDBConnection(path, cfg.WAL, cfg.SyncMode)
			if err != nil {
				return err
			}
			defer dbConn.Close()

			if err := pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, appLog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d.\n", pkgdb.TargetSchemaVersion)
			return nil
		},
	})
	return dbCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
