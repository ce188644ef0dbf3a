package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/k0kubun/pp/v3"

	"github.com/broady/apischema/cmd/apischema/internal/input"
	"github.com/broady/apischema/schema"
)

type Cmd struct {
	Schema    string `arg:"" help:"Schema file (JSON)." type:"existingfile"`
	Type      string `arg:"" help:"Type reference, e.g. api::Page<api::Pet>."`
	Direction string `help:"Typespace to look in." short:"d" enum:"input,output" default:"output"`
	JSON      bool   `help:"Print the definition as JSON."`
	Color     bool   `help:"Colorize output."`
}

func (c *Cmd) Run(ctx context.Context, stdout io.Writer) error {
	s, err := input.Schema(c.Schema)
	if err != nil {
		return err
	}
	ref, err := schema.ParseRef(c.Type)
	if err != nil {
		return err
	}
	d := schema.Output
	if c.Direction == "input" {
		d = schema.Input
	}
	t, err := s.Types(d).Concrete(ref)
	if err != nil {
		return err
	}

	if c.JSON {
		data, err := schema.MarshalType(t)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	p := pp.New()
	p.SetColoringEnabled(c.Color)
	p.SetExportedOnly(true)
	p.SetOmitEmpty(true)
	_, err = p.Fprintln(stdout, t)
	return err
}
