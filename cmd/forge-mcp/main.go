// Package main implements the forge-mcp tool server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/aichemist/forge-mcp/internal/config"
	"github.com/aichemist/forge-mcp/internal/cursordb"
	"github.com/aichemist/forge-mcp/internal/fsguard"
	"github.com/aichemist/forge-mcp/internal/pathfilter"
	"github.com/aichemist/forge-mcp/internal/prompts"
)

var (
	guard         *fsguard.Service
	filter        *pathfilter.Filter
	cursorDB      *cursordb.Service
	promptCatalog *prompts.Catalog
)

var (
	flagConfig     string
	flagCursorPath string
)

func main() {
	cmd := &cobra.Command{
		Use:   "forge-mcp [allowed-root ...]",
		Short: "MCP server for filesystem inspection and Cursor IDE state",
		Long: `forge-mcp is a Model Context Protocol (MCP) server exposing read-only
filesystem inspection tools and Cursor IDE state-database queries.
Filesystem access is restricted to the allowed root directories given
as arguments (or configured); all tool paths must be absolute.`,
		Example: `forge-mcp /srv/project_files ~/src`,
		Args:    cobra.ArbitraryArgs,
		RunE:    runServer,
	}
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	cmd.Flags().StringVar(&flagCursorPath, "cursor-path", "", "Cursor user directory (overrides config and OS default)")

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	// stdout carries the MCP transport; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	roots := args
	if len(roots) == 0 {
		roots = cfg.AllowedRoots
	}
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		roots = []string{cwd}
	}

	guard, err = fsguard.New(roots, cfg.MaxFileBytes)
	if err != nil {
		return err
	}
	filter = pathfilter.New(cfg.IgnorePatterns)

	cursorPath := flagCursorPath
	if cursorPath == "" {
		cursorPath = cfg.CursorPath
	}
	if cursorPath == "" {
		cursorPath = cursordb.DefaultCursorPath()
	}
	cursorDB = cursordb.New(cursorPath, cfg.ProjectDirectories)

	promptCatalog, err = prompts.Load()
	if err != nil {
		return err
	}

	slog.Info("starting server", "roots", guard.Roots(), "cursorPath", cursorPath, "version", version)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "forge-mcp",
		Version: version,
	}, nil)

	registerTools(server)
	registerPrompts(server)
	registerResources(server)

	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}

	return nil
}
