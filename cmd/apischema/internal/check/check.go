package check

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/cmd/apischema/internal/input"
	"github.com/broady/apischema/schema"
)

type Cmd struct {
	Schema string `arg:"" help:"Schema file (JSON)." type:"existingfile"`
	Config string `help:"Configuration file (YAML) with renames and rules." short:"c" type:"existingfile"`
}

func (c *Cmd) Run(ctx context.Context, stdout io.Writer) error {
	g, err := input.Generator(c.Schema, c.Config)
	if err != nil {
		return err
	}

	s, err := g.Build(ctx)
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Findings {
			fmt.Fprintf(stdout, "✗ %s\n", f.Error())
		}
		return errors.Errorf("%s found", plural(len(verr.Findings), "problem"))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "✓ %s, %s, %s\n",
		plural(len(s.Functions), "function"),
		plural(s.InputTypes.Len(), "input type"),
		plural(s.OutputTypes.Len(), "output type"))
	fmt.Fprintln(stdout, "✓ All references resolve")
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}
