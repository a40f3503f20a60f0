package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/ops"
	"github.com/hpungsan/notepad/internal/update"
	"github.com/hpungsan/notepad/internal/web"
)

// maxStdinBytes caps ideas and source files read from stdin.
const maxStdinBytes = 1 << 20

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// stdout is where command output goes; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "notepad",
		Usage:   "Turn an idea into a checklist and surgical prompts, then verify and refine",
		Version: Version,
		Commands: []*cli.Command{
			ideaCmd(env),
			passCmd(env),
			failCmd(env),
			nextCmd(env),
			listCmd(env),
			showCmd(env),
			currentCmd(env),
			selectCmd(env),
			deleteCmd(env),
			heuristicsCmd(env),
			quickEditCmd(env),
			promptCmd(env),
			exportCmd(env),
			importCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newUpdateFlag builds the --update flag shared by step and prompt commands.
func newUpdateFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "update", Aliases: []string{"u"}, Usage: "Update ID (default: current update)"}
}

// ideaCmd creates the idea command.
func ideaCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "idea",
		Usage:     "Plan an idea into a checklist and a first prompt (reads the idea from stdin if no argument)",
		ArgsUsage: "[idea]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "x", Usage: "Extra context, e.g. stack"},
			&cli.StringFlag{Name: "y", Usage: "Extra context, e.g. constraints"},
			&cli.StringFlag{Name: "file-tree", Usage: "File tree of the target repo"},
			&cli.StringFlag{Name: "snippets", Usage: "Relevant code snippets"},
			&cli.StringFlag{Name: "acceptance", Usage: "Acceptance criteria"},
			&cli.StringFlag{Name: "tiny-test", Usage: "Smallest test that proves the change"},
			&cli.StringFlag{Name: "files", Usage: "Comma-separated files the change touches"},
		},
		Action: func(c *cli.Context) error {
			idea := strings.Join(c.Args().Slice(), " ")
			if idea == "" && stdinHasData() {
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				idea = text
			}

			output, err := env.svc.SubmitIdea(c.Context, ops.SubmitInput{
				Idea:               idea,
				X:                  c.String("x"),
				Y:                  c.String("y"),
				FileTree:           c.String("file-tree"),
				Snippets:           c.String("snippets"),
				AcceptanceCriteria: c.String("acceptance"),
				TinyTest:           c.String("tiny-test"),
				FileList:           parseList(c.String("files")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// passCmd creates the pass command.
func passCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "pass",
		Usage:     "Mark a checklist step as passed",
		ArgsUsage: "<step id or position>",
		Flags:     []cli.Flag{newUpdateFlag()},
		Action: func(c *cli.Context) error {
			output, err := env.svc.MarkPass(c.Context, ops.VerdictInput{
				UpdateID: c.String("update"),
				Step:     c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// failCmd creates the fail command.
func failCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "fail",
		Usage:     "Mark a checklist step as failed",
		ArgsUsage: "<step id or position>",
		Flags: []cli.Flag{
			newUpdateFlag(),
			&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Usage: "What went wrong (required)"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.svc.MarkFail(c.Context, ops.VerdictInput{
				UpdateID: c.String("update"),
				Step:     c.Args().First(),
				Reason:   c.String("reason"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// nextCmd creates the next command.
func nextCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Produce the next prompt: a refinement after a failure, else the next pending step",
		Flags: []cli.Flag{newUpdateFlag()},
		Action: func(c *cli.Context) error {
			output, err := env.svc.NextPrompt(c.Context, ops.NextInput{UpdateID: c.String("update")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List updates, most recent first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by status: pending|pass|fail"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type: normal|quickEdit"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.svc.List(c.Context, ops.ListInput{
				Status: c.String("status"),
				Type:   c.String("type"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one update with its checklist and prompt",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			u, err := env.svc.Get(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(u)
		},
	}
}

// currentCmd creates the current command.
func currentCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "current",
		Usage: "Show the current update (null when none)",
		Action: func(c *cli.Context) error {
			u, err := env.svc.Current(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]*update.Update{"update": u})
		},
	}
}

// selectCmd creates the select command.
func selectCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Make an update current",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			u, err := env.svc.Select(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(u)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an update",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := env.svc.Delete(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// heuristicsCmd creates the heuristics command.
func heuristicsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "heuristics",
		Usage: "List learned patterns, highest score first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHeuristicsLimit, Usage: "Max items to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.svc.Heuristics(c.Context, ops.HeuristicsInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// quickEditCmd creates the quick-edit command.
func quickEditCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "quick-edit",
		Usage: "Record a single narrow text or style change and print its micro prompt",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "File path (required)"},
			&cli.StringFlag{Name: "before", Aliases: []string{"b"}, Usage: "Exact text to replace (required)"},
			&cli.StringFlag{Name: "after", Aliases: []string{"a"}, Usage: "Replacement text (required)"},
			&cli.StringFlag{Name: "anchor", Usage: "Component or function that contains the text"},
			&cli.StringFlag{Name: "scope", Value: string(update.ScopeSingle), Usage: "Occurrences to change: single|selected|all"},
			&cli.BoolFlag{Name: "count", Usage: "Count occurrences in --file before recording"},
		},
		Action: func(c *cli.Context) error {
			input := ops.QuickEditInput{
				File:   c.String("file"),
				Anchor: c.String("anchor"),
				Before: c.String("before"),
				After:  c.String("after"),
				Scope:  update.Scope(c.String("scope")),
			}
			if c.Bool("count") {
				src, err := readSource(input.File)
				if err != nil {
					return outputError(err)
				}
				input.Source = src
			}

			output, err := env.svc.QuickEdit(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// promptCmd creates the prompt command.
func promptCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "Print the current prompt of an update",
		Flags: []cli.Flag{
			newUpdateFlag(),
			&cli.BoolFlag{Name: "copy", Aliases: []string{"c"}, Usage: "Also copy the prompt to the clipboard"},
			&cli.BoolFlag{Name: "raw", Usage: "Print the prompt text instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			var (
				u   *update.Update
				err error
			)
			if id := c.String("update"); id != "" {
				u, err = env.svc.Get(c.Context, id)
			} else {
				u, err = env.svc.Current(c.Context)
				if err == nil && u == nil {
					err = errors.NewInvalidRequest("no current update")
				}
			}
			if err != nil {
				return outputError(err)
			}

			copied := false
			if c.Bool("copy") {
				if err := writeClipboard(u.PromptUsed); err != nil {
					return outputError(errors.NewInternal(fmt.Errorf("copy to clipboard: %w", err)))
				}
				copied = true
			}

			if c.Bool("raw") {
				_, err := fmt.Fprintln(stdout, u.PromptUsed)
				return err
			}
			return outputJSON(map[string]any{
				"id":     u.ID,
				"prompt": u.PromptUsed,
				"copied": copied,
			})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export updates and heuristics to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.notepad/exports/<label>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "label", Usage: "File name prefix for the default path"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.svc.Export(c.Context, ops.ExportInput{
				Path:  c.String("path"),
				Label: c.String("label"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import updates and heuristics from a JSONL export",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Input file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Import mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			if path == "" {
				path = c.Args().First()
			}

			output, err := env.svc.Import(c.Context, ops.ImportInput{
				Path: path,
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, model proxy, and web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Interface to listen on (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := env.cfg.ServerBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := env.cfg.ServerPort
			if c.IsSet("port") {
				port = c.Int("port")
			}

			srv := web.NewServer(web.Deps{
				Service:  env.svc,
				Metrics:  env.metrics,
				Gatherer: env.gatherer,
			}, Version, bind, port)
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI as "[CODE] message".
func outputError(err error) error {
	nErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// readSource reads a file for occurrence counting.
func readSource(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest("file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFound(path)
		}
		return "", errors.NewInternal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxStdinBytes+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if len(data) > maxStdinBytes {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s exceeds %d bytes", path, maxStdinBytes))
	}
	return string(data), nil
}

// parseList splits a comma-separated string into a slice of trimmed entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			items = append(items, t)
		}
	}
	return items
}
