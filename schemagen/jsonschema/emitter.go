package jsonschema

import (
	"context"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/schema"
	"github.com/broady/apischema/schemagen/sink"
)

// Config controls the emitted document.
type Config struct {
	// File is the output path. Defaults to "schema.json".
	File string

	// Indent is the indentation string. Defaults to two spaces.
	Indent string
}

// Result describes one generation.
type Result struct {
	Files       []string
	Definitions int
}

// Generate writes a JSON Schema document holding one definition per
// concrete type in each direction.
func Generate(ctx context.Context, s *schema.Schema, out sink.OutputSink, cfg Config) (*Result, error) {
	if cfg.File == "" {
		cfg.File = "schema.json"
	}
	if cfg.Indent == "" {
		cfg.Indent = "  "
	}
	doc, err := Build(ctx, s)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", cfg.Indent)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	data = append(data, '\n')
	if err := out.WriteFile(ctx, cfg.File, data); err != nil {
		return nil, err
	}
	return &Result{Files: []string{cfg.File}, Definitions: len(doc.Defs)}, nil
}

// Build returns the document for s. Definitions are keyed by direction
// and instantiated name, e.g. "output.api.Page_api.Pet".
func Build(ctx context.Context, s *schema.Schema) (*Schema, error) {
	doc := &Schema{
		Dialect:     Draft,
		Title:       s.Name,
		Description: s.Description,
		Defs:        make(map[string]*Schema),
	}
	for _, d := range []schema.Direction{schema.Input, schema.Output} {
		b := &builder{
			ts:   s.Types(d),
			dir:  d,
			defs: doc.Defs,
			keys: make(map[string]string),
		}
		for i := range s.Functions {
			for _, ref := range s.Functions[i].References(d) {
				b.enqueue(*ref)
			}
		}
		for _, t := range b.ts.Types() {
			if len(t.TypeParameters()) == 0 {
				b.enqueue(schema.Ref(t.TypeName()))
			}
		}
		if err := b.run(ctx); err != nil {
			return nil, errors.WithDetails(err, "direction", d.String())
		}
	}
	return doc, nil
}

// builder emits definitions for one direction. References are emitted
// breadth first from a queue so recursive types terminate.
type builder struct {
	ts    *schema.Typespace
	dir   schema.Direction
	defs  map[string]*Schema
	keys  map[string]string // definition key -> reference
	refs  map[string]string // reference -> definition key
	queue []schema.TypeReference
}

func (b *builder) enqueue(ref schema.TypeReference) string {
	if b.refs == nil {
		b.refs = make(map[string]string)
	}
	s := ref.String()
	if key, ok := b.refs[s]; ok {
		return key
	}
	base := b.dir.String() + "." + defName(ref)
	key := base
	for n := 2; ; n++ {
		if _, taken := b.keys[key]; !taken {
			break
		}
		key = base + "_" + strconv.Itoa(n)
	}
	b.keys[key] = s
	b.refs[s] = key
	b.queue = append(b.queue, ref)
	return key
}

// maxInstantiationDepth bounds how deeply type arguments may nest in an
// emitted definition. Polymorphic recursion such as
// Nested<T> { inner: Nested<List<T>> } exceeds any bound.
const maxInstantiationDepth = 32

func depth(ref schema.TypeReference) int {
	d := 0
	for _, a := range ref.Arguments {
		d = max(d, depth(a))
	}
	return d + 1
}

var defNamer = strings.NewReplacer(schema.Sep, ".", "<", "_", ", ", "_", ">", "")

func defName(ref schema.TypeReference) string {
	return defNamer.Replace(ref.String())
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func (b *builder) run(ctx context.Context) error {
	for len(b.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref := b.queue[0]
		b.queue = b.queue[1:]
		key := b.refs[ref.String()]

		t, err := b.ts.Concrete(ref)
		if err != nil {
			return errors.WithDetails(err, "reference", ref.String())
		}
		def, err := b.definition(t)
		if err != nil {
			return errors.WithDetails(err, "reference", ref.String())
		}
		if def.Description == "" {
			def.Description = t.Doc()
		}
		def.Title = ref.String()
		b.defs[key] = def
	}
	return nil
}

// ref returns the schema for a reference: std types inline, everything
// else as a "$ref" to its definition.
func (b *builder) ref(ref schema.TypeReference) (*Schema, error) {
	arg := func(i int) (*Schema, error) {
		if i >= len(ref.Arguments) {
			return nil, errors.WithDetails(schema.ErrArityMismatch, "type", ref.Name, "got", len(ref.Arguments))
		}
		return b.ref(ref.Arguments[i])
	}

	switch ref.Name {
	case schema.StdBool:
		return &Schema{Type: "boolean"}, nil
	case schema.StdI8:
		return &Schema{Type: "integer", Minimum: int64Ptr(-1 << 7), Maximum: int64Ptr(1<<7 - 1)}, nil
	case schema.StdI16:
		return &Schema{Type: "integer", Minimum: int64Ptr(-1 << 15), Maximum: int64Ptr(1<<15 - 1)}, nil
	case schema.StdI32:
		return &Schema{Type: "integer", Format: "int32"}, nil
	case schema.StdI64, schema.StdDur:
		return &Schema{Type: "integer", Format: "int64"}, nil
	case schema.StdU8:
		return &Schema{Type: "integer", Minimum: int64Ptr(0), Maximum: int64Ptr(1<<8 - 1)}, nil
	case schema.StdU16:
		return &Schema{Type: "integer", Minimum: int64Ptr(0), Maximum: int64Ptr(1<<16 - 1)}, nil
	case schema.StdU32:
		return &Schema{Type: "integer", Format: "uint32", Minimum: int64Ptr(0)}, nil
	case schema.StdU64:
		return &Schema{Type: "integer", Format: "uint64", Minimum: int64Ptr(0)}, nil
	case schema.StdF32:
		return &Schema{Type: "number", Format: "float"}, nil
	case schema.StdF64:
		return &Schema{Type: "number", Format: "double"}, nil
	case schema.StdString:
		return &Schema{Type: "string"}, nil
	case schema.StdBytes:
		return &Schema{Type: "string", ContentEncoding: "base64"}, nil
	case schema.StdTime:
		return &Schema{Type: "string", Format: "date-time"}, nil
	case schema.StdUUID:
		return &Schema{Type: "string", Format: "uuid"}, nil
	case schema.StdURL:
		return &Schema{Type: "string", Format: "uri"}, nil
	case schema.StdUnit:
		return &Schema{Type: "null"}, nil
	case schema.StdJSON:
		return &Schema{}, nil
	case schema.StdList, schema.StdSet:
		items, err := arg(0)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items, UniqueItems: ref.Name == schema.StdSet}, nil
	case schema.StdMap:
		if _, err := arg(0); err != nil {
			return nil, err
		}
		values, err := arg(1)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case schema.StdOption, schema.StdPatch:
		inner, err := arg(0)
		if err != nil {
			return nil, err
		}
		return &Schema{AnyOf: []*Schema{inner, {Type: "null"}}}, nil
	}

	if _, err := b.ts.Resolve(ref); err != nil {
		return nil, err
	}
	if _, seen := b.refs[ref.String()]; !seen && depth(ref) > maxInstantiationDepth {
		return nil, errors.WithDetails(schema.ErrInstantiationDepth,
			"reference", ref.String(), "max", maxInstantiationDepth)
	}
	key := b.enqueue(ref)
	return &Schema{Ref: "#/$defs/" + pointerEscaper.Replace(key)}, nil
}

func (b *builder) definition(t schema.Type) (*Schema, error) {
	switch t := t.(type) {
	case *schema.Struct:
		return b.structDef(t)
	case *schema.Enum:
		return b.enumDef(t)
	case *schema.Primitive:
		if t.Fallback == nil {
			return &Schema{}, nil
		}
		return b.ref(*t.Fallback)
	default:
		return nil, errors.Errorf("unsupported type kind %s", t.Kind())
	}
}

func (b *builder) structDef(s *schema.Struct) (*Schema, error) {
	switch {
	case s.IsAlias():
		return b.ref(s.Fields.List[0].Type)
	case s.IsUnit():
		return &Schema{Type: "null"}, nil
	case s.IsTuple():
		return b.tuple(s.Fields)
	default:
		return b.object(s.Fields)
	}
}

func (b *builder) tuple(fs schema.Fields) (*Schema, error) {
	out := &Schema{Type: "array", Items: false, MinItems: intPtr(fs.Len()), MaxItems: intPtr(fs.Len())}
	for i := range fs.List {
		item, err := b.ref(fs.List[i].Type)
		if err != nil {
			return nil, errors.WithDetails(err, "field", fs.List[i].Name)
		}
		out.PrefixItems = append(out.PrefixItems, item)
	}
	return out, nil
}

// object renders named fields. Flattened fields are combined with allOf.
func (b *builder) object(fs schema.Fields) (*Schema, error) {
	obj := &Schema{Type: "object"}
	var flattened []*Schema
	for i := range fs.List {
		f := &fs.List[i]
		v, err := b.ref(f.Type)
		if err != nil {
			return nil, errors.WithDetails(err, "field", f.Name)
		}
		if f.Flattened {
			flattened = append(flattened, v)
			continue
		}
		if f.Description != "" {
			v = describe(v, f.Description)
		}
		obj.property(f.WireName(), v, f.Required && f.Type.Name != schema.StdPatch)
	}
	if len(flattened) == 0 {
		return obj, nil
	}
	return &Schema{AllOf: append([]*Schema{obj}, flattened...)}, nil
}

// describe attaches a description without mutating a shared "$ref".
func describe(v *Schema, doc string) *Schema {
	if v.Ref != "" {
		return &Schema{AllOf: []*Schema{v}, Description: doc}
	}
	v.Description = doc
	return v
}

func (b *builder) payload(fs schema.Fields) (*Schema, error) {
	switch {
	case fs.Kind == schema.FieldsNone:
		return nil, nil
	case fs.Kind == schema.FieldsUnnamed && fs.Len() == 1:
		return b.ref(fs.List[0].Type)
	case fs.Kind == schema.FieldsUnnamed:
		return b.tuple(fs)
	default:
		return b.object(fs)
	}
}

func (b *builder) enumDef(en *schema.Enum) (*Schema, error) {
	if en.Representation.Kind == schema.RepExternal && simpleEnum(en) {
		out := &Schema{}
		for i := range en.Variants {
			v := &en.Variants[i]
			if v.Discriminant != nil {
				out.Type = "integer"
				out.Enum = append(out.Enum, *v.Discriminant)
			} else {
				out.Type = "string"
				out.Enum = append(out.Enum, v.WireName())
			}
		}
		return out, nil
	}

	out := &Schema{}
	for i := range en.Variants {
		v := &en.Variants[i]
		alt, err := b.variant(en, v)
		if err != nil {
			return nil, errors.WithDetails(err, "variant", v.Name)
		}
		if v.Description != "" {
			alt = describe(alt, v.Description)
		}
		out.OneOf = append(out.OneOf, alt)
	}
	return out, nil
}

// simpleEnum reports whether every variant is a unit and all of them agree
// on being numbered or named.
func simpleEnum(en *schema.Enum) bool {
	if len(en.Variants) == 0 {
		return false
	}
	numbered := en.Variants[0].Discriminant != nil
	for i := range en.Variants {
		v := &en.Variants[i]
		if v.Fields.Kind != schema.FieldsNone || v.Untagged || (v.Discriminant != nil) != numbered {
			return false
		}
	}
	return true
}

func (b *builder) variant(en *schema.Enum, v *schema.Variant) (*Schema, error) {
	payload, err := b.payload(v.Fields)
	if err != nil {
		return nil, err
	}
	wire := v.WireName()
	rep := en.Representation
	if v.Untagged {
		rep = schema.Untagged()
	}

	switch rep.Kind {
	case schema.RepInternal:
		tag := &Schema{Const: wire}
		if payload == nil {
			obj := &Schema{Type: "object"}
			obj.property(rep.Tag, tag, true)
			return obj, nil
		}
		if v.Fields.Kind == schema.FieldsNamed && payload.Type == "object" {
			payload.property(rep.Tag, tag, true)
			return payload, nil
		}
		obj := &Schema{Type: "object"}
		obj.property(rep.Tag, tag, true)
		return &Schema{AllOf: []*Schema{obj, payload}}, nil
	case schema.RepAdjacent:
		obj := &Schema{Type: "object"}
		obj.property(rep.Tag, &Schema{Const: wire}, true)
		if payload != nil {
			obj.property(rep.Content, payload, true)
		}
		return obj, nil
	case schema.RepNone:
		if payload == nil {
			return &Schema{Type: "null"}, nil
		}
		return payload, nil
	default:
		if payload == nil {
			if v.Discriminant != nil {
				return &Schema{Const: *v.Discriminant}, nil
			}
			return &Schema{Const: wire}, nil
		}
		obj := &Schema{Type: "object", AdditionalProperties: false}
		obj.property(wire, payload, true)
		return obj, nil
	}
}
