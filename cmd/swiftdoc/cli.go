package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/kpumuk/swift-weaver/internal/config"
	"github.com/kpumuk/swift-weaver/internal/docs"
	_ "github.com/kpumuk/swift-weaver/internal/lexer"
	"github.com/kpumuk/swift-weaver/internal/lsp"
	"github.com/kpumuk/swift-weaver/internal/mcptools"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
)

const (
	exitOK       = 0
	exitIssues   = 1
	exitInternal = 3

	outputFormatText = "text"
	outputFormatJSON = "json"

	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"

	stdinName = "<stdin>"
)

var (
	version = "dev"
	commit  = "unknown"
)

// errIssues marks a run that completed without anything to report.
var errIssues = errors.New("nothing found")

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath     string
	backend        string
	colorMode      string
	verbose        bool
	stdinInput     bool
	assumeFilename string
	jobs           int

	cfg        config.Config
	builder    syntaxmap.Builder
	classifier *docs.Classifier
	logger     *slog.Logger
	styles     *styles
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errIssues):
		return exitIssues
	default:
		writef(stderr, "swiftdoc: %v\n", err)
		return exitInternal
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "swiftdoc",
		Short: "Locate documentation comments in Swift sources",
		Long: `swiftdoc finds the tokens in Swift sources that carry a documentation comment
("///" lines or "/** */" blocks) and prints their offsets, comments and declarations.

Paths may name files or directories; directories are walked honoring .gitignore.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.setup() },
	}
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, c.UsageString())
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	pf.StringVar(&a.backend, "backend", "", "syntax map backend (overrides the configuration)")
	pf.StringVar(&a.colorMode, "color", colorAuto, "colorize text output: auto|always|never")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")
	pf.BoolVar(&a.stdinInput, "stdin", false, "read a single source from stdin")
	pf.StringVar(&a.assumeFilename, "assume-filename", "", "path reported for stdin input")
	pf.IntVarP(&a.jobs, "jobs", "j", runtime.NumCPU(), "number of files processed in parallel")

	root.AddCommand(
		a.offsetsCommand(),
		a.docsCommand(),
		a.linesCommand(),
		a.commentCommand(),
		a.declCommand(),
		a.indexCommand(),
		a.searchCommand(),
		a.backendsCommand(),
		a.serveCommand(),
		a.mcpCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *app) setup() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	switch a.colorMode {
	case colorAuto, colorAlways, colorNever:
	default:
		return fmt.Errorf("--color must be one of: %s, %s, %s", colorAuto, colorAlways, colorNever)
	}
	if a.jobs < 1 {
		return errors.New("--jobs must be positive")
	}

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		a.logger.Debug("configuration loaded", "path", a.configPath)
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	b, err := syntaxmap.Lookup(cfg.Backend)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.builder = b
	a.classifier = cfg.Classifier()
	a.styles = newStyles(colorEnabled(a.colorMode, a.stdout))
	return nil
}

func (a *app) backendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available syntax map backends",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, name := range syntaxmap.Names() {
				marker := " "
				if name == a.builder.Name() {
					marker = "*"
				}
				writef(a.stdout, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a documentation language server over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Debug("language server started", "backend", a.builder.Name())
			srv := lsp.NewServer(lsp.Analyzer{Builder: a.builder, Classifier: a.classifier})
			return srv.Run(cmd.Context(), a.stdin, a.stdout)
		},
	}
}

func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run a Model Context Protocol server exposing documentation tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Debug("mcp server started", "backend", a.builder.Name())
			srv := mcptools.NewServer(mcptools.Config{
				Builder:    a.builder,
				Classifier: a.classifier,
				Extensions: a.cfg.Files.Extensions,
			}, version)
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			writef(a.stdout, "swiftdoc %s\n", version)
			writef(a.stdout, "Commit: %s\n", commit)
			writef(a.stdout, "Go version: %s\n", runtime.Version())
			writef(a.stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

func isSupportedOutputFormat(format string) bool {
	return format == outputFormatText || format == outputFormatJSON
}

func writef(w io.Writer, format string, args ...any) {
	//nolint:gosec // Terminal output helper; format strings are internal callsite constants.
	_, _ = io.WriteString(w, fmt.Sprintf(format, args...))
}
