package mcp

import (
	"database/sql"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	quire "github.com/unowned-ai/quire/pkg"
	"github.com/unowned-ai/quire/pkg/auth"
	pkgdb "github.com/unowned-ai/quire/pkg/db"
	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
	"github.com/unowned-ai/quire/pkg/utils"
)

// Config describes how the server opens its database and who its callers are.
type Config struct {
	DBPath   string
	WAL      bool
	SyncMode string
	// Owner makes every call privileged. Use it only when the stdio peer is the owner.
	Owner         bool
	PageSize      int
	Authenticator *auth.Authenticator
	Logger        *zap.Logger
}

type QuireMCPServer struct {
	mcpServer *server.MCPServer
	db        *sql.DB
	log       *zap.Logger
	DBPath    string
}

// NewQuireMCPServer opens (and if needed migrates) the database at cfg.DBPath and
// registers every entry tool on a new MCP server.
func NewQuireMCPServer(cfg Config) (*QuireMCPServer, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dbPath, err := utils.ResolveAndEnsureDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		"Quire MCP Server",
		quire.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	dbConn, err := pkgdb.OpenDBConnection(dbPath, cfg.WAL, cfg.SyncMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := pkgdb.UpgradeDB(dbConn, dbPath, pkgdb.TargetSchemaVersion, log); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to initialize/upgrade database schema for '%s': %w", dbPath, err)
	}

	store := entries.NewStore(dbConn, entries.WithLogger(log))
	tools := NewTools(query.NewService(store, log), cfg.Authenticator, cfg.Owner, cfg.PageSize, log)
	tools.Register(s)

	log.Info("mcp server ready", zap.String("db", dbPath), zap.Bool("owner", cfg.Owner))
	return &QuireMCPServer{
		mcpServer: s,
		db:        dbConn,
		log:       log,
		DBPath:    dbPath,
	}, nil
}

// Start runs the stdio event loop until stdin closes or the process is signalled.
func (s *QuireMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// DB returns the underlying *sql.DB.
func (s *QuireMCPServer) DB() *sql.DB {
	return s.db
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *QuireMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close checkpoints the WAL and closes the database.
func (s *QuireMCPServer) Close() error {
	if s.db == nil {
		return nil
	}
	// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		s.log.Warn("WAL checkpoint failed during close", zap.Error(err))
	}
	return s.db.Close()
}
