// Package schemagen builds a normalized schema from an application or an
// existing schema file and hands it to the emitters.
//
//	s, err := schemagen.FromApp(app).
//	    Rename("petstore::", "api::").
//	    FoldTransparent().
//	    Build(ctx)
package schemagen

import (
	"context"
	"path/filepath"
	"reflect"

	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/broady/apischema"
	"github.com/broady/apischema/schema"
	"github.com/broady/apischema/schemagen/jsonschema"
	"github.com/broady/apischema/schemagen/provider"
	"github.com/broady/apischema/schemagen/sink"
	"github.com/broady/apischema/schemagen/typescript"
)

// ErrUnknownLang is returned for a target language without an emitter.
var ErrUnknownLang = errors.Base("unknown target language")

// Generator provides a fluent API for building a schema. Create one with
// FromApp, FromTypes or FromSchema, configure it with method chaining and
// finish with Build, Generate or ToDir.
type Generator struct {
	app   *apischema.App
	types []any
	base  *schema.Schema

	cfg        Config
	validators []schema.Validator
}

// FromApp derives the schema from every endpoint registered on app.
func FromApp(app *apischema.App) *Generator {
	return &Generator{app: app}
}

// FromTypes derives a schema without functions from zero values of the
// given types. They are placed in the output typespace.
func FromTypes(types ...any) *Generator {
	return &Generator{types: types}
}

// FromSchema normalizes an existing schema. s is not modified.
func FromSchema(s *schema.Schema) *Generator {
	return &Generator{base: s}
}

// WithConfig replaces the generator's options with cfg.
func (g *Generator) WithConfig(cfg *Config) *Generator {
	g.cfg = *cfg
	return g
}

// Name sets the schema name.
func (g *Generator) Name(name string) *Generator {
	g.cfg.Name = name
	return g
}

// Describe sets the schema description.
func (g *Generator) Describe(doc string) *Generator {
	g.cfg.Description = doc
	return g
}

// Packages enables source analysis of the given Go packages. Reflected
// definitions are replaced by their source versions, which carry doc
// comments, const-group enums and generic parameters.
func (g *Generator) Packages(pkgs ...string) *Generator {
	g.cfg.Packages = append(g.cfg.Packages, pkgs...)
	return g
}

// Rename adds a rename pass. from is an exact name or a pattern such as
// "internal::*"; see schema.ParsePattern.
func (g *Generator) Rename(from, to string) *Generator {
	g.cfg.Renames = append(g.cfg.Renames, Rename{From: from, To: to})
	return g
}

// AllowRedundantRenames stops a rename that matches nothing from failing
// the build.
func (g *Generator) AllowRedundantRenames() *Generator {
	g.cfg.AllowRedundantRenames = true
	return g
}

// FoldTransparent replaces references to transparent wrappers with the
// wrapped type.
func (g *Generator) FoldTransparent() *Generator {
	g.cfg.FoldTransparent = true
	return g
}

// PrependPath prefixes every function path.
func (g *Generator) PrependPath(prefix string) *Generator {
	g.cfg.PrependPath = prefix
	return g
}

// WithPrune drops definitions no function can reach.
func (g *Generator) WithPrune() *Generator {
	g.cfg.Prune = true
	return g
}

// Rule adds a CEL rule.
func (g *Generator) Rule(r Rule) *Generator {
	g.cfg.Rules = append(g.cfg.Rules, r)
	return g
}

// Validate adds validators run after the built-in checks.
func (g *Generator) Validate(v ...schema.Validator) *Generator {
	g.validators = append(g.validators, v...)
	return g
}

// Target adds an output.
func (g *Generator) Target(t Target) *Generator {
	g.cfg.Targets = append(g.cfg.Targets, t)
	return g
}

// Build runs the normalization pipeline and returns the validated,
// sorted schema. On error no schema is returned.
func (g *Generator) Build(ctx context.Context) (*schema.Schema, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := CompileRules(g.cfg.Rules)
	if err != nil {
		return nil, err
	}
	log := slogctx.FromCtx(ctx)

	s, err := g.source(ctx)
	if err != nil {
		return nil, err
	}
	pass := func(name string, attrs ...any) {
		attrs = append([]any{"pass", name, "input", s.InputTypes.Len(), "output", s.OutputTypes.Len()}, attrs...)
		log.DebugContext(ctx, "schema pass", attrs...)
	}
	pass("source", "functions", len(s.Functions))

	n, err := s.ApplyTransforms()
	if err != nil {
		return nil, err
	}
	pass("transform", "applied", n)

	for _, r := range g.cfg.Renames {
		n, err := s.RenameTypes(r.From, r.To)
		if err != nil {
			return nil, errors.WithDetails(err, "pattern", r.From)
		}
		if n == 0 && !g.cfg.AllowRedundantRenames {
			return nil, errors.WithDetails(schema.ErrRenameUnmatched, "pattern", r.From, "to", r.To)
		}
		pass("rename", "pattern", r.From, "to", r.To, "renamed", n)
	}

	if g.cfg.FoldTransparent {
		folded, err := s.FoldTransparentTypes()
		if err != nil {
			return nil, err
		}
		pass("fold", "folded", folded)
	}

	if g.cfg.PrependPath != "" {
		s.PrependPath(g.cfg.PrependPath)
		pass("prepend", "prefix", g.cfg.PrependPath)
	}

	pass("consolidate", "merged", s.ConsolidateTypes())

	if g.cfg.Prune {
		pass("prune", "removed", s.PruneUnreferenced())
	}

	symbols := schema.AssignSymbols(s)
	pass("symbols", "types", symbols.Len())

	if err := schema.Validate(s, append(rules, g.validators...)...); err != nil {
		return nil, err
	}
	s.SortTypes()
	pass("sort")
	return s, nil
}

// source produces the unnormalized schema.
func (g *Generator) source(ctx context.Context) (*schema.Schema, error) {
	if g.base != nil {
		s := g.base.Clone()
		if g.cfg.Name != "" {
			s.Name = g.cfg.Name
		}
		if g.cfg.Description != "" {
			s.Description = g.cfg.Description
		}
		return s, nil
	}

	opts := provider.ReflectionInputOptions{Name: g.cfg.Name, Description: g.cfg.Description}
	if g.app != nil {
		opts.Endpoints = g.app.Endpoints()
	}
	for _, v := range g.types {
		opts.OutputTypes = append(opts.OutputTypes, reflect.TypeOf(v))
	}
	p := &provider.ReflectionProvider{}
	s, err := p.BuildSchema(ctx, opts)
	if err != nil {
		return nil, err
	}
	log := slogctx.FromCtx(ctx)
	for _, w := range p.Warnings() {
		log.WarnContext(ctx, w.Message, "code", w.Code, "type", w.TypeName)
	}

	if len(g.cfg.Packages) > 0 {
		sp := &provider.SourceProvider{}
		src, err := sp.BuildTypespace(ctx, provider.SourceInputOptions{Packages: g.cfg.Packages})
		if err != nil {
			return nil, err
		}
		for _, w := range sp.Warnings() {
			log.WarnContext(ctx, w.Message, "code", w.Code, "type", w.TypeName)
		}
		n := enrich(s, src, p.Instances())
		log.DebugContext(ctx, "schema pass", "pass", "enrich", "replaced", n)
	}
	return s, nil
}

// GenerateResult describes one Generate run.
type GenerateResult struct {
	Schema   *schema.Schema
	Files    []string
	Warnings []string
}

// Generate builds the schema and writes every configured target. Targets
// run concurrently, each into a filesystem sink rooted at its Out
// directory.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	s, err := g.Build(ctx)
	if err != nil {
		return nil, err
	}
	res := &GenerateResult{Schema: s}

	targets := g.cfg.Targets
	outputs := make([]*EmitResult, len(targets))
	eg, ctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		eg.Go(func() error {
			r, err := Emit(ctx, s.Clone(), sink.NewFilesystemSink(t.Out), t)
			if err != nil {
				return errors.WithDetails(err, "lang", t.Lang, "out", t.Out)
			}
			outputs[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for i, r := range outputs {
		for _, f := range r.Files {
			res.Files = append(res.Files, filepath.Join(targets[i].Out, f))
		}
		res.Warnings = append(res.Warnings, r.Warnings...)
	}
	return res, nil
}

// ToDir writes the given languages into dir. With no languages it writes
// TypeScript.
func (g *Generator) ToDir(ctx context.Context, dir string, langs ...string) (*GenerateResult, error) {
	if len(langs) == 0 {
		langs = []string{LangTypeScript}
	}
	for _, lang := range langs {
		g.Target(Target{Lang: lang, Out: dir})
	}
	return g.Generate(ctx)
}

// EmitResult describes the files one target wrote.
type EmitResult struct {
	Files    []string
	Warnings []string
}

// Emit writes one target's output for s into out. t.Out is ignored.
func Emit(ctx context.Context, s *schema.Schema, out sink.OutputSink, t Target) (*EmitResult, error) {
	switch t.Lang {
	case LangTypeScript:
		r, err := typescript.Generate(ctx, s, out, typescript.Config{
			File:         t.File,
			EmitComments: t.EmitComments,
			EnumStyle:    t.EnumStyle,
		})
		if err != nil {
			return nil, err
		}
		res := &EmitResult{Files: r.Files}
		for _, w := range r.Warnings {
			res.Warnings = append(res.Warnings, w.Code+": "+w.Message)
		}
		return res, nil
	case LangJSONSchema:
		r, err := jsonschema.Generate(ctx, s, out, jsonschema.Config{File: t.File})
		if err != nil {
			return nil, err
		}
		return &EmitResult{Files: r.Files}, nil
	case LangSchema:
		file := t.File
		if file == "" {
			file = "apischema.json"
		}
		data, err := schema.Marshal(s)
		if err != nil {
			return nil, err
		}
		if err := out.WriteFile(ctx, file, data); err != nil {
			return nil, err
		}
		return &EmitResult{Files: []string{file}}, nil
	default:
		return nil, errors.WithDetails(ErrUnknownLang, "lang", t.Lang)
	}
}
