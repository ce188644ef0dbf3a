package provider

import (
	"context"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"reflect"
	"sort"
	"strings"

	"github.com/broady/apischema/schema"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/tools/go/packages"
)

// ErrPackageLoad is returned when the requested packages cannot be loaded
// or do not type-check.
var ErrPackageLoad = errors.Base("cannot load packages")

// SourceProvider extracts types by analyzing Go source code. Unlike the
// reflection provider it keeps generic types generic, turns const groups
// into enums and carries doc comments.
type SourceProvider struct {
	// Qualify defaults to DefaultQualifier.
	Qualify Qualifier

	warnings []Warning
}

// SourceInputOptions configures source-based extraction.
type SourceInputOptions struct {
	// Packages are the Go package patterns to analyze.
	Packages []string

	// Dir is the directory packages are resolved from. Empty means the
	// current directory.
	Dir string

	// RootTypes are unqualified type names to extract with everything
	// they reference. Empty means every exported type.
	RootTypes []string
}

// Warnings returns the warnings produced by the last build.
func (p *SourceProvider) Warnings() []Warning { return p.warnings }

// BuildTypespace loads the packages and returns a typespace with the
// requested types.
func (p *SourceProvider) BuildTypespace(ctx context.Context, opts SourceInputOptions) (*schema.Typespace, error) {
	p.warnings = nil
	if len(opts.Packages) == 0 {
		return nil, errors.WithDetails(ErrPackageLoad, "reason", "no packages specified")
	}

	cfg := &packages.Config{
		Context: ctx,
		Dir:     opts.Dir,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, opts.Packages...)
	if err != nil {
		return nil, errors.WithDetails(ErrPackageLoad, "cause", err.Error())
	}
	if len(pkgs) == 0 {
		return nil, errors.WithDetails(ErrPackageLoad, "reason", "no packages found")
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, errors.WithDetails(ErrPackageLoad, "package", pkg.PkgPath, "errors", pkg.Errors[0].Error())
		}
	}

	q := p.Qualify
	if q == nil {
		q = DefaultQualifier
	}
	b := &sourceBuilder{
		p:       p,
		pkgs:    pkgs,
		ts:      &schema.Typespace{},
		qualify: q,
		docs:    make(map[token.Pos]string),
		owners:  make(map[string]*types.TypeName),
	}
	for _, pkg := range pkgs {
		b.collectDocs(pkg)
	}

	if len(opts.RootTypes) > 0 {
		for _, name := range opts.RootTypes {
			tn, ok := b.lookup(name)
			if !ok {
				return nil, errors.WithDetails(schema.ErrTypeNotFound, "name", name)
			}
			if _, err := b.named(ctx, tn.Type().(*types.Named)); err != nil {
				return nil, err
			}
		}
		return b.ts, nil
	}

	for _, pkg := range pkgs {
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !tn.Exported() || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, err := b.named(ctx, named); err != nil {
				return nil, err
			}
		}
	}
	return b.ts, nil
}

// sourceBuilder fills one typespace from loaded packages.
type sourceBuilder struct {
	p       *SourceProvider
	pkgs    []*packages.Package
	ts      *schema.Typespace
	qualify Qualifier
	docs    map[token.Pos]string // declaring identifier -> doc text
	owners  map[string]*types.TypeName
}

func (b *sourceBuilder) addWarning(code, message, typeName string) {
	b.p.warnings = append(b.p.warnings, Warning{Code: code, Message: message, TypeName: typeName})
}

func (b *sourceBuilder) lookup(name string) (*types.TypeName, bool) {
	for _, pkg := range b.pkgs {
		if tn, ok := pkg.Types.Scope().Lookup(name).(*types.TypeName); ok {
			if _, ok := tn.Type().(*types.Named); ok {
				return tn, true
			}
		}
	}
	return nil, false
}

// collectDocs indexes the doc comments of type declarations, struct
// fields and constants by the position of their identifier.
func (b *sourceBuilder) collectDocs(pkg *packages.Package) {
	for _, file := range pkg.Syntax {
		ast.Inspect(file, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.GenDecl:
				for _, spec := range n.Specs {
					switch spec := spec.(type) {
					case *ast.TypeSpec:
						doc := spec.Doc
						if doc == nil && len(n.Specs) == 1 {
							doc = n.Doc
						}
						b.setDoc(spec.Name.Pos(), doc)
					case *ast.ValueSpec:
						doc := spec.Doc
						if doc == nil {
							doc = spec.Comment
						}
						for _, id := range spec.Names {
							b.setDoc(id.Pos(), doc)
						}
					}
				}
			case *ast.Field:
				doc := n.Doc
				if doc == nil {
					doc = n.Comment
				}
				for _, id := range n.Names {
					b.setDoc(id.Pos(), doc)
				}
			}
			return true
		})
	}
}

func (b *sourceBuilder) setDoc(pos token.Pos, cg *ast.CommentGroup) {
	if cg == nil {
		return
	}
	if text := strings.TrimSpace(cg.Text()); text != "" {
		b.docs[pos] = text
	}
}

func (b *sourceBuilder) nameOf(obj types.Object) string {
	pkg := ""
	if obj.Pkg() != nil {
		pkg = obj.Pkg().Path()
	}
	return schema.JoinName(b.qualify(pkg), obj.Name())
}

// named defines the generic origin of t if needed and returns a reference
// carrying t's type arguments.
func (b *sourceBuilder) named(ctx context.Context, t *types.Named) (schema.TypeReference, error) {
	if err := ctx.Err(); err != nil {
		return schema.TypeReference{}, err
	}
	obj := t.Obj()
	if obj.Pkg() != nil {
		if std, ok := specialName(obj.Pkg().Path(), obj.Name()); ok {
			return schema.Ref(std), nil
		}
	}

	name := b.nameOf(obj)
	ref := schema.Ref(name)
	if args := t.TypeArgs(); args != nil {
		for i := 0; i < args.Len(); i++ {
			arg, err := b.ref(ctx, args.At(i), name)
			if err != nil {
				return schema.TypeReference{}, err
			}
			ref.Arguments = append(ref.Arguments, arg)
		}
	}

	if owner, ok := b.owners[name]; ok {
		if owner != obj {
			return schema.TypeReference{}, errors.WithDetails(schema.ErrNameCollision, "name", name, "types", []string{owner.String(), obj.String()})
		}
		return ref, nil
	}
	if !b.ts.Reserve(name) {
		return ref, nil
	}
	b.owners[name] = obj

	def, err := b.define(ctx, t.Origin(), name)
	if err != nil {
		return schema.TypeReference{}, errors.WithDetails(err, "type", name)
	}
	return ref, b.ts.Insert(def)
}

func (b *sourceBuilder) define(ctx context.Context, t *types.Named, name string) (schema.Type, error) {
	doc := b.docs[t.Obj().Pos()]

	var params []schema.TypeParameter
	if tps := t.TypeParams(); tps != nil {
		for i := 0; i < tps.Len(); i++ {
			params = append(params, schema.TypeParameter{Name: tps.At(i).Obj().Name()})
		}
	}

	if variants, ok := b.enumVariants(t); ok {
		return &schema.Enum{
			Name:           name,
			Description:    doc,
			Parameters:     params,
			Representation: schema.External(),
			Variants:       variants,
		}, nil
	}

	if hasMethod(t, "MarshalJSON") || hasMethod(t, "MarshalText") {
		fallback := schema.Ref(schema.StdJSON)
		if !hasMethod(t, "MarshalJSON") {
			fallback = schema.Ref(schema.StdString)
		}
		b.addWarning("CUSTOM_MARSHALER", "Type "+t.String()+" implements a custom marshaler, recorded as a primitive", name)
		return &schema.Primitive{Name: name, Description: doc, Parameters: params, Fallback: &fallback}, nil
	}

	switch u := t.Underlying().(type) {
	case *types.Struct:
		fields, err := b.fields(ctx, u, name)
		if err != nil {
			return nil, err
		}
		return &schema.Struct{Name: name, Description: doc, Parameters: params, Fields: fields}, nil
	default:
		inner, err := b.ref(ctx, u, name+"Item")
		if err != nil {
			return nil, err
		}
		return &schema.Struct{
			Name:        name,
			Description: doc,
			Parameters:  params,
			Transparent: true,
			Fields:      schema.UnnamedFields(schema.Field{Type: inner, Required: true}),
		}, nil
	}
}

// enumVariants collects the package-level constants of type t. Constants
// are ordered by declaration.
func (b *sourceBuilder) enumVariants(t *types.Named) ([]schema.Variant, bool) {
	if _, ok := t.Underlying().(*types.Basic); !ok || t.Obj().Pkg() == nil {
		return nil, false
	}
	scope := t.Obj().Pkg().Scope()
	var consts []*types.Const
	for _, name := range scope.Names() {
		if c, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(c.Type(), t) {
			consts = append(consts, c)
		}
	}
	if len(consts) == 0 {
		return nil, false
	}
	sort.Slice(consts, func(i, j int) bool { return consts[i].Pos() < consts[j].Pos() })

	variants := make([]schema.Variant, 0, len(consts))
	for _, c := range consts {
		v := schema.Variant{
			Name:        c.Name(),
			Description: b.docs[c.Pos()],
			Fields:      schema.Fields{Kind: schema.FieldsNone},
		}
		switch c.Val().Kind() {
		case constant.String:
			v.SerdeName = constant.StringVal(c.Val())
		case constant.Int:
			d, _ := constant.Int64Val(c.Val())
			v.Discriminant = &d
		default:
			b.addWarning("ENUM_VALUE", "Constant "+c.Name()+" has a value kind with no wire form", c.Name())
			continue
		}
		variants = append(variants, v)
	}
	return variants, true
}

func hasMethod(t *types.Named, name string) bool {
	for i := 0; i < t.NumMethods(); i++ {
		m := t.Method(i)
		if m.Name() != name {
			continue
		}
		sig := m.Type().(*types.Signature)
		if _, ptr := sig.Recv().Type().(*types.Pointer); ptr {
			continue
		}
		if sig.Params().Len() == 0 && sig.Results().Len() == 2 {
			return true
		}
	}
	return false
}

func (b *sourceBuilder) fields(ctx context.Context, st *types.Struct, parent string) (schema.Fields, error) {
	var list []schema.Field
	for i := 0; i < st.NumFields(); i++ {
		v := st.Field(i)
		rtag := reflect.StructTag(st.Tag(i))
		tag := parseJSONTag(rtag.Get("json"), v.Name())
		if tag.skip {
			continue
		}

		f := schema.Field{
			Name:        v.Name(),
			Description: b.docs[v.Pos()],
			Required:    !tag.optional,
			Transform:   schema.TransformName(rtag.Get("transform")),
		}
		if f.Description == "" {
			f.Description = rtag.Get("description")
		}
		if tag.name != v.Name() {
			f.SerdeName = tag.name
		}

		ft := v.Type()
		if v.Embedded() && !tag.named {
			et := ft
			if ptr, ok := et.(*types.Pointer); ok {
				et = ptr.Elem()
			}
			if _, ok := et.Underlying().(*types.Struct); ok {
				ft = et
				f.Flattened = true
				f.SerdeName = ""
			}
		}
		if !f.Flattened && !v.Exported() {
			continue
		}

		var err error
		if basic, ok := ft.Underlying().(*types.Basic); ok && tag.stringEncoded && basic.Info()&types.IsString == 0 {
			f.Type = schema.Ref(schema.StdString)
		} else if f.Type, err = b.ref(ctx, ft, parent+"_"+v.Name()); err != nil {
			return schema.Fields{}, errors.WithDetails(err, "field", v.Name())
		}
		list = append(list, f)
	}
	return schema.NamedFields(list...), nil
}

// ref maps a Go type to a reference. hint names anonymous structs.
func (b *sourceBuilder) ref(ctx context.Context, t types.Type, hint string) (schema.TypeReference, error) {
	switch t := t.(type) {
	case *types.Alias:
		return b.ref(ctx, types.Unalias(t), hint)

	case *types.Named:
		return b.named(ctx, t)

	case *types.TypeParam:
		return schema.Ref(t.Obj().Name()), nil

	case *types.Basic:
		if std, ok := goBasics[t.Name()]; ok {
			return schema.Ref(std), nil
		}
		return schema.TypeReference{}, errors.WithDetails(ErrUnsupportedType, "type", t.String())

	case *types.Pointer:
		elem, err := b.ref(ctx, t.Elem(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.Option(elem), nil

	case *types.Slice:
		if basic, ok := t.Elem().(*types.Basic); ok && basic.Kind() == types.Byte {
			return schema.Ref(schema.StdBytes), nil
		}
		elem, err := b.ref(ctx, t.Elem(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.List(elem), nil

	case *types.Array:
		elem, err := b.ref(ctx, t.Elem(), hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.List(elem), nil

	case *types.Map:
		if !validSourceMapKey(t.Key()) {
			return schema.TypeReference{}, errors.WithDetails(ErrUnsupportedMapKey, "type", t.Key().String())
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

	case *types.Interface:
		if !t.Empty() {
			b.addWarning("INTERFACE_TYPE", "Interface type "+t.String()+" mapped to "+schema.StdJSON, "")
		}
		return schema.Ref(schema.StdJSON), nil

	case *types.Struct:
		if t.NumFields() == 0 {
			return schema.Ref(schema.StdUnit), nil
		}
		if !b.ts.Reserve(hint) {
			return schema.Ref(hint), nil
		}
		fields, err := b.fields(ctx, t, hint)
		if err != nil {
			return schema.TypeReference{}, err
		}
		return schema.Ref(hint), b.ts.Insert(&schema.Struct{Name: hint, Fields: fields})

	default:
		return schema.TypeReference{}, errors.WithDetails(ErrUnsupportedType, "type", t.String())
	}
}

func validSourceMapKey(t types.Type) bool {
	if named, ok := t.(*types.Named); ok && hasMethod(named, "MarshalText") {
		return true
	}
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Info()&(types.IsString|types.IsInteger) != 0
}
