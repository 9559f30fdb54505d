// Package mcp provides an MCP (Model Context Protocol) server for aisoc.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/logging"
	"github.com/nvandessel/aisociety/internal/ratelimit"
	"github.com/nvandessel/aisociety/internal/store"
)

// Server wraps the MCP SDK server and exposes the simulator as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	settings     *config.Config
	root         string
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
	runLog       *logging.RunLogger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "aisoc")
	Version string // Server version
	Root    string // Project root directory

	// Settings supplies simulation defaults and host limits. Nil means config.Default().
	Settings *config.Config
	// Logger receives operational logs. Nil discards them; stdout belongs to the transport.
	Logger *slog.Logger
	// RunLog records simulation traces. May be nil.
	RunLog *logging.RunLogger
}

// NewServer creates a new MCP server with aisoc tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	dbPath := settings.Store.Path
	if dbPath == "" {
		dbPath = store.DefaultPath(cfg.Root)
	}
	runStore, err := store.NewSQLiteRunStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		settings:     settings,
		root:         cfg.Root,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(filepath.Join(cfg.Root, config.DirName), logger),
		logger:       logger,
		runLog:       cfg.RunLog,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.auditLogger.Close()
	return s.store.Close()
}
