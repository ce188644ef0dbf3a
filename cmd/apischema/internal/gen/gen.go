package gen

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/cmd/apischema/internal/input"
	"github.com/broady/apischema/schemagen"
)

type Cmd struct {
	Schema  string   `arg:"" help:"Schema file (JSON)." type:"existingfile"`
	Out     string   `help:"Output directory. Required unless the config file lists targets." short:"o"`
	Targets []string `help:"Target language: typescript, jsonschema or schema. Repeatable; defaults to typescript." short:"t" name:"target" placeholder:"LANG"`
	Config  string   `help:"Configuration file (YAML)." short:"c" type:"existingfile"`
}

func (c *Cmd) Run(ctx context.Context, stdout io.Writer) error {
	g, err := input.Generator(c.Schema, c.Config)
	if err != nil {
		return err
	}

	if c.Out != "" {
		outDir, err := filepath.Abs(c.Out)
		if err != nil {
			return errors.Errorf("resolve output path: %w", err)
		}
		langs := c.Targets
		if len(langs) == 0 {
			langs = []string{schemagen.LangTypeScript}
		}
		for _, lang := range langs {
			g.Target(schemagen.Target{Lang: lang, Out: outDir})
		}
	} else if c.Config == "" {
		return errors.New("--out is required without a config file")
	}

	res, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	if len(res.Files) == 0 {
		return errors.New("no targets configured")
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stdout, "! %s\n", w)
	}
	for _, f := range res.Files {
		fmt.Fprintf(stdout, "✓ wrote %s\n", f)
	}
	return nil
}
