package schemagen

import (
	"strings"

	"github.com/google/cel-go/cel"
	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/schema"
)

// ErrInvalidRule is returned when a rule expression does not compile or
// does not produce a boolean.
var ErrInvalidRule = errors.Base("invalid rule")

// Rule subjects.
const (
	RuleOnType     = "type"
	RuleOnField    = "field"
	RuleOnFunction = "function"
)

// Rule is a user check written in CEL. Expr is evaluated once per subject
// and must return true; a false result becomes a validation finding.
//
// Variables by subject:
//
//	type:     direction, name, module, base, kind, description, parameters, fields
//	field:    direction, owner, name, wire, ref, required, flattened, description
//	function: name, path, mount, readonly, description, deprecated, input, output, error
type Rule struct {
	Name    string `yaml:"name" validate:"required"`
	Expr    string `yaml:"expr" validate:"required"`
	Message string `yaml:"message"`
	On      string `yaml:"on" validate:"required,oneof=type field function"`
}

var ruleVariables = map[string][]cel.EnvOption{
	RuleOnType: {
		cel.Variable("direction", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("module", cel.StringType),
		cel.Variable("base", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("parameters", cel.ListType(cel.StringType)),
		cel.Variable("fields", cel.ListType(cel.StringType)),
	},
	RuleOnField: {
		cel.Variable("direction", cel.StringType),
		cel.Variable("owner", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("wire", cel.StringType),
		cel.Variable("ref", cel.StringType),
		cel.Variable("required", cel.BoolType),
		cel.Variable("flattened", cel.BoolType),
		cel.Variable("description", cel.StringType),
	},
	RuleOnFunction: {
		cel.Variable("name", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("mount", cel.StringType),
		cel.Variable("readonly", cel.BoolType),
		cel.Variable("description", cel.StringType),
		cel.Variable("deprecated", cel.StringType),
		cel.Variable("input", cel.StringType),
		cel.Variable("output", cel.StringType),
		cel.Variable("error", cel.StringType),
	},
}

// CompiledRule is a Rule ready to run as a schema.Validator.
type CompiledRule struct {
	Rule
	program cel.Program
}

// Compile type-checks r.Expr.
func (r Rule) Compile() (*CompiledRule, error) {
	opts, ok := ruleVariables[r.On]
	if !ok {
		return nil, errors.WithDetails(ErrInvalidRule, "rule", r.Name, "on", r.On)
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ast, iss := env.Compile(r.Expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.WithDetails(ErrInvalidRule, "rule", r.Name, "cause", iss.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.WithDetails(ErrInvalidRule, "rule", r.Name, "cause", "expression must return bool, got "+ast.OutputType().String())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.WithDetails(ErrInvalidRule, "rule", r.Name, "cause", err.Error())
	}
	return &CompiledRule{Rule: r, program: prg}, nil
}

// CompileRules compiles every rule, returning the first failure.
func CompileRules(rules []Rule) ([]schema.Validator, error) {
	out := make([]schema.Validator, 0, len(rules))
	for _, r := range rules {
		c, err := r.Compile()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Validate implements schema.Validator.
func (r *CompiledRule) Validate(s *schema.Schema, rep *schema.Report) {
	switch r.On {
	case RuleOnType:
		for _, d := range []schema.Direction{schema.Input, schema.Output} {
			for _, t := range s.Types(d).Types() {
				r.check(rep, t.Symbol(), t.TypeName(), typeVars(d, t))
			}
		}
	case RuleOnField:
		for _, d := range []schema.Direction{schema.Input, schema.Output} {
			for _, t := range s.Types(d).Types() {
				schema.EachField(t, func(pointer string, f *schema.Field) {
					r.check(rep, f.ID, pointer, fieldVars(d, t, f))
				})
			}
		}
	case RuleOnFunction:
		for i := range s.Functions {
			fn := &s.Functions[i]
			r.check(rep, fn.ID, fn.MountPath(), functionVars(fn))
		}
	}
}

func (r *CompiledRule) check(rep *schema.Report, id schema.SymbolID, pointer string, vars map[string]any) {
	out, _, err := r.program.Eval(vars)
	if err != nil {
		rep.Add(id, pointer, "rule %s: %v", r.Name, err)
		return
	}
	if ok, _ := out.Value().(bool); ok {
		return
	}
	msg := r.Message
	if msg == "" {
		msg = r.Expr
	}
	rep.Add(id, pointer, "rule %s: %s", r.Name, msg)
}

func typeVars(d schema.Direction, t schema.Type) map[string]any {
	params := []string{}
	for _, p := range t.TypeParameters() {
		params = append(params, p.Name)
	}
	fields := []string{}
	schema.EachField(t, func(_ string, f *schema.Field) {
		fields = append(fields, f.WireName())
	})
	name := t.TypeName()
	return map[string]any{
		"direction":   d.String(),
		"name":        name,
		"module":      schema.ModuleName(name),
		"base":        schema.BaseName(name),
		"kind":        strings.ToLower(t.Kind().String()),
		"description": t.Doc(),
		"parameters":  params,
		"fields":      fields,
	}
}

func fieldVars(d schema.Direction, owner schema.Type, f *schema.Field) map[string]any {
	return map[string]any{
		"direction":   d.String(),
		"owner":       owner.TypeName(),
		"name":        f.Name,
		"wire":        f.WireName(),
		"ref":         f.Type.String(),
		"required":    f.Required,
		"flattened":   f.Flattened,
		"description": f.Description,
	}
}

func functionVars(fn *schema.Function) map[string]any {
	ref := func(r *schema.TypeReference) string {
		if r == nil {
			return ""
		}
		return r.String()
	}
	return map[string]any{
		"name":        fn.Name,
		"path":        fn.Path,
		"mount":       fn.MountPath(),
		"readonly":    fn.Readonly,
		"description": fn.Description,
		"deprecated":  fn.Deprecated,
		"input":       ref(fn.InputType),
		"output":      ref(fn.OutputType),
		"error":       ref(fn.ErrorType),
	}
}
