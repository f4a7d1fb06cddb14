package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unowned-ai/quire/pkg/auth"
	"github.com/unowned-ai/quire/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	var owner bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Quire MCP server (stdio)",
		Long: `Start a Model Context Protocol (MCP) server that exposes quire entries, drafts and
search as MCP tools via STDIO.

Callers are anonymous readers unless they pass a token obtained from the 'login' tool
(requires QUIRE_OWNER_PASSWORD_HASH and QUIRE_TOKEN_SECRET). With --owner every call is
treated as the owner.

The --db flag is optional. If not provided, a system-specific default location will be used:
- Windows: %USERPROFILE%\AppData\Roaming\quire\quire.db
- macOS: ~/Library/Application Support/quire/quire.db
- Linux: ~/.local/share/quire/quire.db

Example:
  quire mcp
  quire mcp --owner --db blog.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner && publicFlag {
				return fmt.Errorf("--owner cannot be combined with --public")
			}

			srv, err := mcp.NewQuireMCPServer(mcp.Config{
				DBPath:        cfg.DBPath,
				WAL:           cfg.WAL,
				SyncMode:      cfg.SyncMode,
				Owner:         owner,
				PageSize:      cfg.PageSize,
				Authenticator: auth.NewAuthenticator(cfg.OwnerPasswordHash, cfg.TokenSecret, cfg.TokenTTL, appLog),
				Logger:        appLog,
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			// Logs go to stderr so we don't contaminate the JSON-RPC stream on stdout.
			appLog.Info("listening for MCP JSON-RPC on stdin/stdout",
				zap.String("db", srv.DBPath),
				zap.Bool("wal", cfg.WAL),
				zap.String("sync", cfg.SyncMode),
				zap.Bool("owner", owner),
				zap.Bool("login", cfg.OwnerPasswordHash != "" && cfg.TokenSecret != ""),
			)
			return srv.Start()
		},
	}
	cmd.Flags().BoolVar(&owner, "owner", false, "Treat every MCP caller as the owner (drafts and write tools enabled)")
	return cmd
}
