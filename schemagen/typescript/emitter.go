// Package typescript emits TypeScript declarations for a schema.
package typescript

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/apischema/schema"
	"github.com/broady/apischema/schemagen/sink"
	"gitlab.com/tozd/go/errors"
)

// Config controls the emitted TypeScript.
type Config struct {
	// File is the output path. Defaults to "types.ts".
	File string

	// EmitComments includes descriptions as JSDoc comments.
	EmitComments bool

	// EnumStyle is "union" (default) or "enum". Enums only apply to enums
	// whose variants are all units.
	EnumStyle string

	// UnknownType is used for arbitrary JSON. Defaults to "unknown".
	UnknownType string

	// Frontmatter is written at the top of the file.
	Frontmatter string
}

// Warning is a non-fatal note about lossy output.
type Warning struct {
	Code    string
	Message string
}

// Result describes one generation.
type Result struct {
	Files          []string
	TypesGenerated int
	Warnings       []Warning
}

// Generate writes a single TypeScript file with one namespace per
// direction and a table of functions.
func Generate(ctx context.Context, s *schema.Schema, out sink.OutputSink, cfg Config) (*Result, error) {
	if cfg.File == "" {
		cfg.File = "types.ts"
	}
	if cfg.UnknownType == "" {
		cfg.UnknownType = "unknown"
	}
	e := &Emitter{config: cfg}

	var buf bytes.Buffer
	buf.WriteString("// Code generated by apischema. DO NOT EDIT.\n")
	if cfg.Frontmatter != "" {
		buf.WriteString("\n")
		buf.WriteString(strings.TrimRight(cfg.Frontmatter, "\n"))
		buf.WriteString("\n")
	}

	n := 0
	for _, d := range []schema.Direction{schema.Input, schema.Output} {
		ts := s.Types(d)
		fmt.Fprintf(&buf, "\nexport namespace %s {\n", d)
		for i, t := range ts.Types() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if i > 0 {
				buf.WriteString("\n")
			}
			if err := e.EmitType(&buf, t); err != nil {
				return nil, errors.WithDetails(err, "direction", d.String(), "type", t.TypeName())
			}
			n++
		}
		buf.WriteString("}\n")
	}
	e.emitFunctions(&buf, s)

	if err := out.WriteFile(ctx, cfg.File, buf.Bytes()); err != nil {
		return nil, err
	}
	return &Result{Files: []string{cfg.File}, TypesGenerated: n, Warnings: e.warnings}, nil
}

// Emitter writes TypeScript for schema types.
type Emitter struct {
	config   Config
	warnings []Warning

	// namespace qualifies user type names outside their namespace block.
	namespace string
}

func (e *Emitter) warn(code, format string, args ...any) {
	e.warnings = append(e.warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

const indent = "  "

// EmitType writes one exported declaration, indented for a namespace.
func (e *Emitter) EmitType(buf *bytes.Buffer, t schema.Type) error {
	if e.config.EmitComments {
		e.emitJSDoc(buf, indent, t.Doc())
	}
	name := identifier(t.TypeName()) + typeParameters(t.TypeParameters())
	params := paramSet(t.TypeParameters())

	switch t := t.(type) {
	case *schema.Struct:
		return e.emitStruct(buf, name, t, params)
	case *schema.Enum:
		return e.emitEnum(buf, name, t, params)
	case *schema.Primitive:
		expr := e.config.UnknownType
		if t.Fallback != nil {
			expr = e.TypeExpr(*t.Fallback, params)
		}
		fmt.Fprintf(buf, "%sexport type %s = %s;\n", indent, name, expr)
		return nil
	default:
		return errors.Errorf("unsupported type kind %s", t.Kind())
	}
}

func (e *Emitter) emitStruct(buf *bytes.Buffer, name string, s *schema.Struct, params map[string]bool) error {
	switch {
	case s.IsAlias():
		fmt.Fprintf(buf, "%sexport type %s = %s;\n", indent, name, e.TypeExpr(s.Fields.List[0].Type, params))
	case s.IsUnit():
		fmt.Fprintf(buf, "%sexport type %s = null;\n", indent, name)
	case s.IsTuple():
		fmt.Fprintf(buf, "%sexport type %s = %s;\n", indent, name, e.tuple(s.Fields, params))
	default:
		body, extends := e.object(s.Fields, params, indent)
		if len(extends) == 0 {
			fmt.Fprintf(buf, "%sexport interface %s %s\n", indent, name, body)
		} else {
			fmt.Fprintf(buf, "%sexport type %s = %s & %s;\n", indent, name, body, strings.Join(extends, " & "))
		}
	}
	return nil
}

// object renders named fields as an object literal type. Flattened fields
// are returned separately for intersection.
func (e *Emitter) object(fs schema.Fields, params map[string]bool, in string) (string, []string) {
	var b strings.Builder
	var extends []string
	b.WriteString("{\n")
	for i := range fs.List {
		f := &fs.List[i]
		if f.Flattened {
			extends = append(extends, e.TypeExpr(f.Type, params))
			continue
		}
		if e.config.EmitComments {
			var doc bytes.Buffer
			e.emitJSDoc(&doc, in+indent, f.Description)
			b.Write(doc.Bytes())
		}
		b.WriteString(in + indent)
		b.WriteString(propertyName(f.WireName()))
		if !f.Required || f.Type.Name == schema.StdPatch {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(e.TypeExpr(f.Type, params))
		b.WriteString(";\n")
	}
	b.WriteString(in + "}")
	return b.String(), extends
}

func (e *Emitter) tuple(fs schema.Fields, params map[string]bool) string {
	parts := make([]string, len(fs.List))
	for i := range fs.List {
		parts[i] = e.TypeExpr(fs.List[i].Type, params)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// payload renders the data carried by a variant, or "" for a unit.
func (e *Emitter) payload(fs schema.Fields, params map[string]bool) string {
	switch {
	case fs.Kind == schema.FieldsNone:
		return ""
	case fs.Kind == schema.FieldsUnnamed && fs.Len() == 1:
		return e.TypeExpr(fs.List[0].Type, params)
	case fs.Kind == schema.FieldsUnnamed:
		return e.tuple(fs, params)
	default:
		body, extends := e.object(fs, params, indent+indent)
		return strings.Join(append([]string{body}, extends...), " & ")
	}
}

func (e *Emitter) emitEnum(buf *bytes.Buffer, name string, en *schema.Enum, params map[string]bool) error {
	if e.config.EnumStyle == "enum" && len(en.Parameters) == 0 && allUnit(en) && en.Representation.Kind == schema.RepExternal {
		fmt.Fprintf(buf, "%sexport enum %s {\n", indent, name)
		for i := range en.Variants {
			v := &en.Variants[i]
			value := strconv.Quote(v.WireName())
			if v.Discriminant != nil {
				value = strconv.FormatInt(*v.Discriminant, 10)
			}
			fmt.Fprintf(buf, "%s%s%s = %s,\n", indent, indent, identifier(v.Name), value)
		}
		fmt.Fprintf(buf, "%s}\n", indent)
		return nil
	}

	members := make([]string, 0, len(en.Variants))
	for i := range en.Variants {
		members = append(members, e.variant(en, &en.Variants[i], params))
	}
	if len(members) == 0 {
		members = append(members, "never")
	}
	fmt.Fprintf(buf, "%sexport type %s =\n", indent, name)
	for _, m := range members {
		fmt.Fprintf(buf, "%s%s| %s\n", indent, indent, m)
	}
	buf.Truncate(buf.Len() - 1)
	buf.WriteString(";\n")
	return nil
}

func (e *Emitter) variant(en *schema.Enum, v *schema.Variant, params map[string]bool) string {
	wire := strconv.Quote(v.WireName())
	payload := e.payload(v.Fields, params)
	rep := en.Representation
	if v.Untagged {
		rep = schema.Untagged()
	}

	switch rep.Kind {
	case schema.RepInternal:
		tag := fmt.Sprintf("{ %s: %s }", propertyName(rep.Tag), wire)
		if payload == "" {
			return tag
		}
		if v.Fields.Kind != schema.FieldsNamed {
			e.warn("INTERNAL_TAG_PAYLOAD", "%s::%s carries a non-object payload under an internal tag", en.Name, v.Name)
		}
		return tag + " & " + payload
	case schema.RepAdjacent:
		if payload == "" {
			return fmt.Sprintf("{ %s: %s }", propertyName(rep.Tag), wire)
		}
		return fmt.Sprintf("{ %s: %s; %s: %s }", propertyName(rep.Tag), wire, propertyName(rep.Content), payload)
	case schema.RepNone:
		if payload == "" {
			return "null"
		}
		return payload
	default:
		if payload == "" {
			if v.Discriminant != nil && allUnit(en) {
				return strconv.FormatInt(*v.Discriminant, 10)
			}
			return wire
		}
		return fmt.Sprintf("{ %s: %s }", propertyName(v.WireName()), payload)
	}
}

func allUnit(en *schema.Enum) bool {
	for i := range en.Variants {
		if en.Variants[i].Fields.Kind != schema.FieldsNone {
			return false
		}
	}
	return true
}

// TypeExpr renders a reference as a TypeScript type expression.
func (e *Emitter) TypeExpr(ref schema.TypeReference, params map[string]bool) string {
	if params[ref.Name] {
		return ref.Name
	}
	arg := func(i int) string {
		if i < len(ref.Arguments) {
			return e.TypeExpr(ref.Arguments[i], params)
		}
		return e.config.UnknownType
	}
	switch ref.Name {
	case schema.StdBool:
		return "boolean"
	case schema.StdI8, schema.StdI16, schema.StdI32, schema.StdI64,
		schema.StdU8, schema.StdU16, schema.StdU32, schema.StdU64,
		schema.StdF32, schema.StdF64, schema.StdDur:
		return "number"
	case schema.StdString, schema.StdBytes, schema.StdTime, schema.StdUUID, schema.StdURL:
		return "string"
	case schema.StdUnit:
		return "null"
	case schema.StdJSON:
		return e.config.UnknownType
	case schema.StdList, schema.StdSet:
		elem := arg(0)
		if strings.ContainsAny(elem, " |&") {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case schema.StdMap:
		return "Record<" + arg(0) + ", " + arg(1) + ">"
	case schema.StdOption, schema.StdPatch:
		return arg(0) + " | null"
	}

	name := e.namespace + identifier(ref.Name)
	if len(ref.Arguments) == 0 {
		return name
	}
	args := make([]string, len(ref.Arguments))
	for i := range ref.Arguments {
		args[i] = e.TypeExpr(ref.Arguments[i], params)
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

func typeParameters(ps []schema.TypeParameter) string {
	if len(ps) == 0 {
		return ""
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return "<" + strings.Join(names, ", ") + ">"
}

func paramSet(ps []schema.TypeParameter) map[string]bool {
	m := make(map[string]bool, len(ps))
	for _, p := range ps {
		m[p.Name] = true
	}
	return m
}

// emitFunctions writes a const table of every function and a type mapping
// each mount path to its request and response types.
func (e *Emitter) emitFunctions(buf *bytes.Buffer, s *schema.Schema) {
	expr := func(d schema.Direction, ref *schema.TypeReference) string {
		if ref == nil {
			return "void"
		}
		e.namespace = d.String() + "."
		defer func() { e.namespace = "" }()
		return e.TypeExpr(*ref, nil)
	}

	buf.WriteString("\nexport const functions = {\n")
	for i := range s.Functions {
		fn := &s.Functions[i]
		method := "POST"
		if fn.Readonly {
			method = "GET"
		}
		fmt.Fprintf(buf, "%s%s: { method: %q, path: %q },\n", indent, strconv.Quote(fn.MountPath()), method, fn.MountPath())
	}
	buf.WriteString("} as const;\n")

	buf.WriteString("\nexport interface Functions {\n")
	for i := range s.Functions {
		fn := &s.Functions[i]
		if e.config.EmitComments {
			doc := fn.Description
			if fn.Deprecated != "" {
				doc = strings.TrimSpace(doc + "\n\n@deprecated " + fn.Deprecated)
			}
			e.emitJSDoc(buf, indent, doc)
		}
		fmt.Fprintf(buf, "%s%s: { request: %s; response: %s };\n", indent, strconv.Quote(fn.MountPath()),
			expr(schema.Input, fn.InputType), expr(schema.Output, fn.OutputType))
	}
	buf.WriteString("}\n")
}

func (e *Emitter) emitJSDoc(buf *bytes.Buffer, in, doc string) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return
	}
	lines := strings.Split(doc, "\n")
	if len(lines) == 1 {
		fmt.Fprintf(buf, "%s/** %s */\n", in, strings.ReplaceAll(lines[0], "*/", "*\\/"))
		return
	}
	fmt.Fprintf(buf, "%s/**\n", in)
	for _, line := range lines {
		line = strings.ReplaceAll(line, "*/", "*\\/")
		if line == "" {
			fmt.Fprintf(buf, "%s *\n", in)
		} else {
			fmt.Fprintf(buf, "%s * %s\n", in, line)
		}
	}
	fmt.Fprintf(buf, "%s */\n", in)
}
