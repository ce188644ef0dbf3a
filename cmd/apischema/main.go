package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogctx "github.com/veqryn/slog-context"

	"github.com/broady/apischema/cmd/apischema/internal/check"
	"github.com/broady/apischema/cmd/apischema/internal/gen"
	"github.com/broady/apischema/cmd/apischema/internal/inspect"
	"github.com/broady/apischema/cmd/apischema/internal/normalize"
)

type CLI struct {
	Verbose bool `help:"Log every normalization pass." short:"v"`

	Version   VersionCmd    `cmd:"" help:"Print version information."`
	Gen       gen.Cmd       `cmd:"" help:"Generate client code from a schema file."`
	Check     check.Cmd     `cmd:"" help:"Normalize and validate a schema file without writing anything."`
	Normalize normalize.Cmd `cmd:"" help:"Apply renames and folding and write the resulting schema."`
	Inspect   inspect.Cmd   `cmd:"" help:"Print one type definition, instantiated with its arguments."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(stdout io.Writer) error {
	fmt.Fprintln(stdout, Version())
	return nil
}

// exit is raised by kong's exit hook so run can return the code instead of
// terminating the process.
type exit int

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(exit)
			if !ok {
				panic(r)
			}
			code = int(e)
		}
	}()

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("apischema"),
		kong.Description("Normalize, validate and generate code from API schemas."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exit(code)) }),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slogctx.NewHandler(tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(stderr),
	}), nil))
	ctx = slogctx.NewCtx(ctx, logger)

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(stdout, (*io.Writer)(nil))
	if err := kctx.Run(); err != nil {
		logger.ErrorContext(ctx, "command failed", "command", kctx.Command(), "err", err)
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
