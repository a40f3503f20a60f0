package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hpungsan/notepad/internal/config"
	"github.com/hpungsan/notepad/internal/db"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/logging"
	"github.com/hpungsan/notepad/internal/mcp"
	"github.com/hpungsan/notepad/internal/metrics"
	"github.com/hpungsan/notepad/internal/ops"
	"github.com/hpungsan/notepad/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"idea": true, "pass": true, "fail": true, "next": true,
	"list": true, "show": true, "current": true, "select": true, "delete": true,
	"heuristics": true, "quick-edit": true, "prompt": true,
	"export": true, "import": true, "serve": true,
	"help": true,
}

// appEnv bundles what the commands need.
type appEnv struct {
	svc      *ops.Service
	cfg      *config.Config
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _ __   ___ | |_ ___ _ __   __ _  __| |
  | '_ \ / _ \| __/ _ \ '_ \ / _' |/ _' |
  | | | | (_) | ||  __/ |_) | (_| | (_| |
  |_| |_|\___/ \__\___| .__/ \__,_|\__,_|
                      |_|

  Idea -> plan -> execute -> verify -> refine

  Usage: notepad <command> [options]
         notepad --help

  MCP server mode requires piped input.`)
}

// newEnv opens the database under baseDir and wires the service.
func newEnv(database *sql.DB, cfg *config.Config, baseDir string) *appEnv {
	reg, m := metrics.NewRegistry()
	planner := llm.WithMetrics(llm.New(cfg), m)
	svc := ops.NewService(store.New(database), planner, cfg, ops.Options{
		Metrics: m,
		BaseDir: baseDir,
	})
	return &appEnv{svc: svc, cfg: cfg, metrics: m, gatherer: reg}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatalf("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatalf("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".notepad")

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	cfg = config.ApplyEnv(cfg, os.LookupEnv)

	cliMode := isCLIMode()
	// stdout carries CLI JSON and MCP frames; logs go to stderr.
	if err := logging.Setup(cfg.LogLevel, os.Stderr, cliMode); err != nil {
		fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	env := newEnv(database, cfg, baseDir)

	// CLI mode: known subcommand
	if cliMode {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'notepad --help' for usage.\n")
		database.Close()
		os.Exit(1)
	}

	log := logging.Component("main")
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn().Strs("types", unknown).Msg("unknown types in disabled_types")
	}
	log.Debug().Str("planner", env.svc.Planner().Name()).Msg("starting MCP server")

	// MCP server mode (default)
	if err := mcp.Run(env.svc, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		database.Close()
		os.Exit(1)
	}
}
