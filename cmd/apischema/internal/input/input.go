// Package input loads the schema file and configuration shared by the
// subcommands.
package input

import (
	"os"

	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/schema"
	"github.com/broady/apischema/schemagen"
)

// Schema reads a schema file.
func Schema(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	s, err := schema.Load(f)
	if err != nil {
		return nil, errors.WithDetails(err, "path", path)
	}
	return s, nil
}

// Generator reads a schema file and, when configPath is not empty, the
// configuration to normalize it with.
func Generator(path, configPath string) (*schemagen.Generator, error) {
	s, err := Schema(path)
	if err != nil {
		return nil, err
	}
	g := schemagen.FromSchema(s)
	if configPath != "" {
		cfg, err := schemagen.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		g.WithConfig(cfg)
	}
	return g, nil
}
