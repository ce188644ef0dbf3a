package normalize

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/broady/apischema/cmd/apischema/internal/input"
	"github.com/broady/apischema/schemagen"
	"github.com/broady/apischema/schemagen/sink"
)

type Cmd struct {
	Schema string `arg:"" help:"Schema file (JSON)." type:"existingfile"`
	Out    string `help:"Output schema file." short:"o" required:""`
	Config string `help:"Configuration file (YAML)." short:"c" type:"existingfile"`
}

func (c *Cmd) Run(ctx context.Context, stdout io.Writer) error {
	g, err := input.Generator(c.Schema, c.Config)
	if err != nil {
		return err
	}
	s, err := g.Build(ctx)
	if err != nil {
		return err
	}

	dir, file := filepath.Split(c.Out)
	if dir == "" {
		dir = "."
	}
	out := sink.NewFilesystemSink(dir)
	if _, err := schemagen.Emit(ctx, s, out, schemagen.Target{Lang: schemagen.LangSchema, File: file}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ wrote %s\n", c.Out)
	return nil
}
