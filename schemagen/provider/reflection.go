// Package provider derives schema types from Go code. The reflection
// provider works from runtime types; the source provider loads packages
// and additionally recovers type parameters, enums from const groups and
// doc comments.
package provider

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/broady/apischema/internal/meta"
	"github.com/broady/apischema/schema"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrUnsupportedType is returned for Go types with no wire form,
	// such as channels and functions.
	ErrUnsupportedType = errors.Base("unsupported type")

	// ErrUnsupportedMapKey is returned for map keys that do not encode
	// as JSON object keys.
	ErrUnsupportedMapKey = errors.Base("unsupported map key type")
)

// EnumValuer is implemented by named types with a closed set of values.
// Each returned value becomes one unit variant.
type EnumValuer interface {
	EnumValues() []any
}

var (
	enumValuerType    = reflect.TypeFor[EnumValuer]()
	stringerType      = reflect.TypeFor[fmt.Stringer]()
	textMarshalerType = reflect.TypeFor[interface{ MarshalText() ([]byte, error) }]()
	jsonMarshalerType = reflect.TypeFor[interface{ MarshalJSON() ([]byte, error) }]()
)

// Qualifier maps a Go package path to the module part of a qualified
// type name.
type Qualifier func(pkgPath string) string

// DefaultQualifier uses the last element of the package path, so
// "example.com/shop/api".Pet becomes "api::Pet".
func DefaultQualifier(pkgPath string) string {
	return path.Base(pkgPath)
}

// Warning is a non-fatal note about a lossy mapping.
type Warning struct {
	Code     string
	Message  string
	TypeName string
}

// ReflectionProvider extracts types using runtime reflection.
type ReflectionProvider struct {
	// Qualify defaults to DefaultQualifier.
	Qualify Qualifier

	warnings  []Warning
	instances *schema.RemapTable
}

// ReflectionInputOptions configures reflection-based extraction.
type ReflectionInputOptions struct {
	Name        string
	Description string

	// Endpoints become functions. Request and header types are placed in
	// the input typespace, response and error types in the output one.
	Endpoints []*meta.MethodMetadata

	// InputTypes and OutputTypes are extra roots not reachable from an
	// endpoint.
	InputTypes  []reflect.Type
	OutputTypes []reflect.Type
}

// Warnings returns the warnings produced by the last build.
func (p *ReflectionProvider) Warnings() []Warning { return p.warnings }

// Instances maps the synthetic names given to generic instantiations,
// such as api::Page_Pet, to the generic reference they stand for,
// api::Page<api::Pet>. Instantiations whose arguments cannot be parsed
// back from the Go type name are left out.
func (p *ReflectionProvider) Instances() *schema.RemapTable {
	if p.instances == nil {
		p.instances = schema.NewRemapTable()
	}
	return p.instances
}

// BuildSchema extracts every endpoint and root type into a new schema.
func (p *ReflectionProvider) BuildSchema(ctx context.Context, opts ReflectionInputOptions) (*schema.Schema, error) {
	p.warnings = nil
	p.instances = schema.NewRemapTable()
	s := schema.New(opts.Name, opts.Description)
	in := p.newBuilder(s.Types(schema.Input))
	out := p.newBuilder(s.Types(schema.Output))

	for _, ep := range opts.Endpoints {
		fn := schema.Function{
			Name:        ep.Name,
			Path:        ep.Path,
			Description: ep.Description,
			Deprecated:  ep.Deprecated,
			Readonly:    ep.Readonly,
		}
		for _, mode := range ep.Serialization {
			fn.Serialization = append(fn.Serialization, schema.SerializationMode(mode))
		}
		module := ""
		if p := strings.Trim(ep.Path, "/"); p != "" {
			module = path.Base(p)
		}
		hint := func(suffix string) string {
			return schema.JoinName(module, ep.Name+suffix)
		}
		var err error
		if fn.InputType, err = in.optionalRef(ctx, ep.Request, hint("Request")); err != nil {
			return nil, errors.WithDetails(err, "endpoint", ep.MountPath())
		}
		if fn.InputHeaders, err = in.optionalRef(ctx, ep.Headers, hint("Headers")); err != nil {
			return nil, errors.WithDetails(err, "endpoint", ep.MountPath())
		}
		if fn.OutputType, err = out.optionalRef(ctx, ep.Response, hint("Response")); err != nil {
			return nil, errors.WithDetails(err, "endpoint", ep.MountPath())
		}
		if fn.ErrorType, err = out.optionalRef(ctx, ep.Error, hint("Error")); err != nil {
			return nil, errors.WithDetails(err, "endpoint", ep.MountPath())
		}
		s.AddFunction(fn)
	}

	for _, t := range opts.InputTypes {
		if _, err := in.ref(ctx, t, ""); err != nil {
			return nil, err
		}
	}
	for _, t := range opts.OutputTypes {
		if _, err := out.ref(ctx, t, ""); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TypeRef derives t into ts and returns a reference to it.
func (p *ReflectionProvider) TypeRef(ctx context.Context, ts *schema.Typespace, t reflect.Type) (schema.TypeReference, error) {
	return p.newBuilder(ts).ref(ctx, t, "")
}

func (p *ReflectionProvider) newBuilder(ts *schema.Typespace) *reflectionBuilder {
	q := p.Qualify
	if q == nil {
		q = DefaultQualifier
	}
	return &reflectionBuilder{
		p:       p,
		ts:      ts,
		qualify: q,
		owners:  make(map[string]reflect.Type),
		anon:    make(map[reflect.Type]string),
	}
}

// reflectionBuilder fills one typespace.
type reflectionBuilder struct {
	p       *ReflectionProvider
	ts      *schema.Typespace
	qualify Qualifier
	owners  map[string]reflect.Type // qualified name -> Go type
	anon    map[reflect.Type]string // anonymous struct -> synthetic name
}

func (b *reflectionBuilder) addWarning(code, message, typeName string) {
	b.p.warnings = append(b.p.warnings, Warning{Code: code, Message: message, TypeName: typeName})
}

func (b *reflectionBuilder) optionalRef(ctx context.Context, t reflect.Type, hint string) (*schema.TypeReference, error) {
	if t == nil {
		return nil, nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	ref, err := b.ref(ctx, t, hint)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ref maps t to a reference, defining any named type it needs. hint names
// anonymous structs.
func (b *reflectionBuilder) ref(ctx context.Context, t reflect.Type, hint string) (schema.TypeReference, error) {
	if err := ctx.Err(); err != nil {
		return schema.TypeReference{}, err
	}

	if name, ok := specialType(t); ok {
		return schema.Ref(name), nil
	}
	if isNamed(t) && t.Implements(enumValuerType) {
		return b.defineEnum(t)
	}
	if isNamed(t) && t.Kind() != reflect.Pointer && (t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType)) {
		return b.definePrimitive(t)
	}

	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return schema.TypeReference{}, errors.WithDetails(ErrUnsupportedType, "type", t.String())

	case reflect.Interface:
		if t.NumMethod() > 0 {
			b.addWarning("INTERFACE_TYPE", fmt.Sprintf("Interface type %s mapped to %s", t, schema.StdJSON), t.String())
		}
		return schema.Ref(schema.StdJSON), nil

	case reflect.Pointer:
		elem, err := b.ref(ctx, t.Elem(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.Option(elem), nil

	case reflect.Struct:
		if !isNamed(t) {
			if t.NumField() == 0 {
				return schema.Ref(schema.StdUnit), nil
			}
			return b.defineAnonymous(ctx, t, hint)
		}
		return b.defineStruct(ctx, t)
	}

	if isNamed(t) {
		return b.defineAlias(ctx, t)
	}
	return b.underlying(ctx, t, hint)
}

// underlying maps t by kind alone, ignoring its name.
func (b *reflectionBuilder) underlying(ctx context.Context, t reflect.Type, hint string) (schema.TypeReference, error) {
	switch t.Kind() {
	case reflect.Bool:
		return schema.Ref(schema.StdBool), nil
	case reflect.Int, reflect.Int64:
		return schema.Ref(schema.StdI64), nil
	case reflect.Int8:
		return schema.Ref(schema.StdI8), nil
	case reflect.Int16:
		return schema.Ref(schema.StdI16), nil
	case reflect.Int32:
		return schema.Ref(schema.StdI32), nil
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return schema.Ref(schema.StdU64), nil
	case reflect.Uint8:
		return schema.Ref(schema.StdU8), nil
	case reflect.Uint16:
		return schema.Ref(schema.StdU16), nil
	case reflect.Uint32:
		return schema.Ref(schema.StdU32), nil
	case reflect.Float32:
		return schema.Ref(schema.StdF32), nil
	case reflect.Float64:
		return schema.Ref(schema.StdF64), nil
	case reflect.String:
		return schema.Ref(schema.StdString), nil

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 && t.Kind() == reflect.Slice {
			return schema.Ref(schema.StdBytes), nil
		}
		elem, err := b.ref(ctx, t.Elem(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.List(elem), nil

	case reflect.Map:
		if err := validateMapKey(t.Key()); err != nil {
			return schema.TypeReference{}, err
		}
		key, err := b.ref(ctx, t.Key(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		value, err := b.ref(ctx, t.Elem(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.Map(key, value), nil

	default:
		return b.ref(ctx, t, hint)
	}
}

// claim reserves the schema name for t. It returns false when the name is
// already taken by t itself.
func (b *reflectionBuilder) claim(t reflect.Type, name string) (bool, error) {
	if owner, ok := b.owners[name]; ok {
		if owner != t {
			return false, errors.WithDetails(schema.ErrNameCollision, "name", name, "types", []string{owner.String(), t.String()})
		}
		return false, nil
	}
	if !b.ts.Reserve(name) {
		// Defined by an earlier provider run over the same typespace.
		return false, nil
	}
	b.owners[name] = t
	return true, nil
}

func (b *reflectionBuilder) defineStruct(ctx context.Context, t reflect.Type) (schema.TypeReference, error) {
	name := b.typeName(t)
	ok, err := b.claim(t, name)
	if err != nil || !ok {
		return schema.Ref(name), err
	}
	if strings.Contains(t.Name(), "[") {
		b.addWarning("GENERIC_INSTANCE", fmt.Sprintf("Generic instantiation %s flattened to %s", t, name), name)
		if ref, ok := b.instanceRef(t); ok {
			b.p.Instances().Add(schema.Ref(name), ref)
		}
	}
	fields, err := b.fields(ctx, t, name)
	if err != nil {
		return schema.TypeReference{}, errors.WithDetails(err, "type", name)
	}
	return schema.Ref(name), b.ts.Insert(&schema.Struct{Name: name, Fields: fields})
}

func (b *reflectionBuilder) defineAnonymous(ctx context.Context, t reflect.Type, hint string) (schema.TypeReference, error) {
	if name, ok := b.anon[t]; ok {
		return schema.Ref(name), nil
	}
	if hint == "" {
		return schema.TypeReference{}, errors.WithDetails(ErrUnsupportedType, "type", t.String(), "reason", "anonymous struct without a parent name")
	}
	b.anon[t] = hint
	ok, err := b.claim(t, hint)
	if err != nil || !ok {
		return schema.Ref(hint), err
	}
	fields, err := b.fields(ctx, t, hint)
	if err != nil {
		return schema.TypeReference{}, err
	}
	return schema.Ref(hint), b.ts.Insert(&schema.Struct{Name: hint, Fields: fields})
}

// defineAlias records a named non-struct type as a transparent newtype.
func (b *reflectionBuilder) defineAlias(ctx context.Context, t reflect.Type) (schema.TypeReference, error) {
	name := b.typeName(t)
	ok, err := b.claim(t, name)
	if err != nil || !ok {
		return schema.Ref(name), err
	}
	inner, err := b.underlying(ctx, t, name+"Item")
	if err != nil {
		return schema.TypeReference{}, errors.WithDetails(err, "type", name)
	}
	return schema.Ref(name), b.ts.Insert(&schema.Struct{
		Name:        name,
		Transparent: true,
		Fields:      schema.UnnamedFields(schema.Field{Type: inner, Required: true}),
	})
}

func (b *reflectionBuilder) defineEnum(t reflect.Type) (schema.TypeReference, error) {
	name := b.typeName(t)
	ok, err := b.claim(t, name)
	if err != nil || !ok {
		return schema.Ref(name), err
	}
	values := reflect.Zero(t).Interface().(EnumValuer).EnumValues()
	e := &schema.Enum{Name: name, Representation: schema.External()}
	for _, v := range values {
		rv := reflect.ValueOf(v)
		variant := schema.Variant{Fields: schema.Fields{Kind: schema.FieldsNone}}
		switch rv.Kind() {
		case reflect.String:
			variant.Name = rv.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			d := rv.Int()
			variant.Discriminant = &d
			variant.Name = enumLabel(rv, t.Name(), d)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			d := int64(rv.Uint())
			variant.Discriminant = &d
			variant.Name = enumLabel(rv, t.Name(), d)
		default:
			return schema.TypeReference{}, errors.WithDetails(ErrUnsupportedType, "type", name, "reason", "enum value of kind "+rv.Kind().String())
		}
		e.Variants = append(e.Variants, variant)
	}
	return schema.Ref(name), b.ts.Insert(e)
}

// definePrimitive records a type with its own JSON or text encoding as an
// opaque primitive. Text marshalers fall back to string.
func (b *reflectionBuilder) definePrimitive(t reflect.Type) (schema.TypeReference, error) {
	name := b.typeName(t)
	ok, err := b.claim(t, name)
	if err != nil || !ok {
		return schema.Ref(name), err
	}
	fallback := schema.Ref(schema.StdJSON)
	if !t.Implements(jsonMarshalerType) {
		fallback = schema.Ref(schema.StdString)
	}
	b.addWarning("CUSTOM_MARSHALER", fmt.Sprintf("Type %s implements a custom marshaler, recorded as a primitive", t), name)
	return schema.Ref(name), b.ts.Insert(&schema.Primitive{Name: name, Fallback: &fallback})
}

func enumLabel(v reflect.Value, typeName string, d int64) string {
	if v.Type().Implements(stringerType) {
		return v.Interface().(fmt.Stringer).String()
	}
	return fmt.Sprintf("%s%d", typeName, d)
}

// fields derives the field list of struct t. Embedded structs without a
// json name are flattened.
func (b *reflectionBuilder) fields(ctx context.Context, t reflect.Type, parent string) (schema.Fields, error) {
	var list []schema.Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}
		tag := parseJSONTag(sf.Tag.Get("json"), sf.Name)
		if tag.skip {
			continue
		}

		f := schema.Field{
			Name:        sf.Name,
			Description: sf.Tag.Get("description"),
			Required:    !tag.optional,
			Transform:   schema.TransformName(sf.Tag.Get("transform")),
		}
		if tag.name != sf.Name {
			f.SerdeName = tag.name
		}

		ft := sf.Type
		if sf.Anonymous && !tag.named {
			et := ft
			for et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				ft = et
				f.Flattened = true
				f.SerdeName = ""
			}
		}
		if !f.Flattened && !sf.IsExported() {
			continue
		}

		var err error
		if tag.stringEncoded && isScalar(ft) {
			f.Type = schema.Ref(schema.StdString)
		} else if f.Type, err = b.ref(ctx, ft, parent+"_"+sf.Name); err != nil {
			return schema.Fields{}, errors.WithDetails(err, "field", sf.Name)
		}
		list = append(list, f)
	}
	return schema.NamedFields(list...), nil
}

// typeName returns the qualified schema name of a named Go type.
// Generic instantiations get a synthetic name built from their arguments.
func (b *reflectionBuilder) typeName(t reflect.Type) string {
	name := t.Name()
	if i := strings.Index(name, "["); i >= 0 {
		name = syntheticName(name[:i], name[i:])
	}
	return schema.JoinName(b.qualify(t.PkgPath()), name)
}

// syntheticName turns Page and "[example.com/api.Pet]" into Page_Pet.
func syntheticName(base, args string) string {
	parts := strings.FieldsFunc(args, func(r rune) bool {
		return r == '[' || r == ']' || r == ',' || r == ' '
	})
	out := []string{base}
	for _, p := range parts {
		ptr := strings.Count(p, "*")
		p = strings.TrimLeft(p, "*")
		if i := strings.LastIndex(p, "/"); i >= 0 {
			p = p[i+1:]
		}
		if i := strings.LastIndex(p, "."); i >= 0 {
			p = p[i+1:]
		}
		out = append(out, strings.Repeat("Ptr", ptr)+p)
	}
	return strings.Join(out, "_")
}

var goBasics = map[string]string{
	"bool":    schema.StdBool,
	"int":     schema.StdI64,
	"int8":    schema.StdI8,
	"int16":   schema.StdI16,
	"int32":   schema.StdI32,
	"int64":   schema.StdI64,
	"uint":    schema.StdU64,
	"uint8":   schema.StdU8,
	"uint16":  schema.StdU16,
	"uint32":  schema.StdU32,
	"uint64":  schema.StdU64,
	"uintptr": schema.StdU64,
	"float32": schema.StdF32,
	"float64": schema.StdF64,
	"string":  schema.StdString,
	"byte":    schema.StdU8,
	"rune":    schema.StdI32,

	"any":          schema.StdJSON,
	"interface {}": schema.StdJSON,
}

// instanceRef parses the name of a generic instantiation, such as
// "Page[example.com/api.Pet]", back into a reference.
func (b *reflectionBuilder) instanceRef(t reflect.Type) (schema.TypeReference, bool) {
	name := t.Name()
	i := strings.Index(name, "[")
	return b.goNameRef(t.PkgPath() + "." + name[:i] + name[i:])
}

func (b *reflectionBuilder) goNameRef(s string) (schema.TypeReference, bool) {
	switch {
	case s == "[]uint8":
		return schema.Ref(schema.StdBytes), true
	case strings.HasPrefix(s, "[]"):
		elem, ok := b.goNameRef(s[2:])
		return schema.List(elem), ok
	case strings.HasPrefix(s, "*"):
		elem, ok := b.goNameRef(s[1:])
		return schema.Option(elem), ok
	case strings.HasPrefix(s, "map["), strings.HasPrefix(s, "struct"), strings.HasPrefix(s, "["):
		return schema.TypeReference{}, false
	}
	if std, ok := goBasics[s]; ok {
		return schema.Ref(std), true
	}

	head, args := s, ""
	if i := strings.Index(s, "["); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return schema.TypeReference{}, false
		}
		head, args = s[:i], s[i+1:len(s)-1]
	}
	dot := strings.LastIndex(head, ".")
	if dot < 0 {
		return schema.TypeReference{}, false
	}
	pkg, base := head[:dot], head[dot+1:]
	if args == "" {
		if std, ok := specialName(pkg, base); ok {
			return schema.Ref(std), true
		}
	}
	ref := schema.Ref(schema.JoinName(b.qualify(pkg), base))
	for _, a := range splitTypeArgs(args) {
		arg, ok := b.goNameRef(a)
		if !ok {
			return schema.TypeReference{}, false
		}
		ref.Arguments = append(ref.Arguments, arg)
	}
	return ref, true
}

// splitTypeArgs splits a comma separated argument list at bracket depth 0.
func splitTypeArgs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

func specialType(t reflect.Type) (string, bool) {
	return specialName(t.PkgPath(), t.Name())
}

func specialName(pkgPath, name string) (string, bool) {
	switch pkgPath + "." + name {
	case "time.Time":
		return schema.StdTime, true
	case "time.Duration":
		return schema.StdDur, true
	case "net/url.URL":
		return schema.StdURL, true
	case "encoding/json.Number":
		return schema.StdString, true
	case "encoding/json.RawMessage", "github.com/goccy/go-json.RawMessage":
		return schema.StdJSON, true
	case "github.com/broady/apischema.Empty":
		return schema.StdUnit, true
	}
	return "", false
}

func isNamed(t reflect.Type) bool {
	return t.Name() != "" && t.PkgPath() != ""
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func validateMapKey(t reflect.Type) error {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return nil
	}
	if t.Implements(textMarshalerType) {
		return nil
	}
	return errors.WithDetails(ErrUnsupportedMapKey, "type", t.String())
}

type jsonTag struct {
	name          string
	named         bool
	optional      bool
	skip          bool
	stringEncoded bool
}

// parseJSONTag follows encoding/json: "-" skips, "-," names the field "-",
// an empty name keeps the Go name.
func parseJSONTag(tag, fieldName string) jsonTag {
	if tag == "" {
		return jsonTag{name: fieldName}
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" && len(parts) == 1 {
		return jsonTag{skip: true}
	}
	out := jsonTag{name: parts[0], named: parts[0] != ""}
	if out.name == "" {
		out.name = fieldName
	}
	for _, opt := range parts[1:] {
		switch opt {
		case "omitempty", "omitzero":
			out.optional = true
		case "string":
			out.stringEncoded = true
		}
	}
	return out
}
