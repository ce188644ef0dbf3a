package schema

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Sep separates the segments of a fully-qualified type name.
const Sep = "::"

// TypeReference points to a type by name, optionally with generic
// arguments. The name is either a type in a Typespace, a std type, or a
// type parameter of the enclosing definition.
type TypeReference struct {
	Name      string          `json:"name"`
	Arguments []TypeReference `json:"arguments,omitempty"`
}

// Ref builds a reference.
func Ref(name string, args ...TypeReference) TypeReference {
	if len(args) == 0 {
		return TypeReference{Name: name}
	}
	return TypeReference{Name: name, Arguments: args}
}

// IsZero reports whether the reference names nothing.
func (r TypeReference) IsZero() bool { return r.Name == "" }

// String renders the reference as Name<Arg, Arg>.
func (r TypeReference) String() string {
	var b strings.Builder
	r.write(&b)
	return b.String()
}

func (r TypeReference) write(b *strings.Builder) {
	b.WriteString(r.Name)
	if len(r.Arguments) == 0 {
		return
	}
	b.WriteByte('<')
	for i, a := range r.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		a.write(b)
	}
	b.WriteByte('>')
}

// Equal reports structural equality.
func (r TypeReference) Equal(o TypeReference) bool {
	if r.Name != o.Name || len(r.Arguments) != len(o.Arguments) {
		return false
	}
	for i := range r.Arguments {
		if !r.Arguments[i].Equal(o.Arguments[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r TypeReference) Clone() TypeReference {
	out := TypeReference{Name: r.Name}
	if r.Arguments != nil {
		out.Arguments = make([]TypeReference, len(r.Arguments))
		for i, a := range r.Arguments {
			out.Arguments[i] = a.Clone()
		}
	}
	return out
}

// ParseRef parses the textual form produced by String, for example
// "std::Map<string, api::Pair<u8, string>>".
func ParseRef(s string) (TypeReference, error) {
	p := refParser{src: s}
	ref, err := p.parse()
	if err != nil {
		return TypeReference{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeReference{}, errors.Errorf("type reference %q: unexpected %q at offset %d", s, p.src[p.pos:], p.pos)
	}
	return ref, nil
}

type refParser struct {
	src string
	pos int
}

func (p *refParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *refParser) parse() (TypeReference, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("<>, ", rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return TypeReference{}, errors.Errorf("type reference %q: expected name at offset %d", p.src, start)
	}
	ref := TypeReference{Name: p.src[start:p.pos]}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '<' {
		return ref, nil
	}
	p.pos++
	for {
		arg, err := p.parse()
		if err != nil {
			return TypeReference{}, err
		}
		ref.Arguments = append(ref.Arguments, arg)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return TypeReference{}, errors.Errorf("type reference %q: unterminated argument list", p.src)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return ref, nil
		default:
			return TypeReference{}, errors.Errorf("type reference %q: unexpected %q at offset %d", p.src, p.src[p.pos], p.pos)
		}
	}
}

// SplitName splits a qualified name into its segments.
func SplitName(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Sep)
}

// JoinName joins segments into a qualified name, skipping empty ones.
func JoinName(segments ...string) string {
	parts := segments[:0:0]
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Sep)
}

// BaseName returns the last segment of a qualified name.
func BaseName(name string) string {
	if i := strings.LastIndex(name, Sep); i >= 0 {
		return name[i+len(Sep):]
	}
	return name
}

// ModuleName returns all but the last segment of a qualified name.
func ModuleName(name string) string {
	if i := strings.LastIndex(name, Sep); i >= 0 {
		return name[:i]
	}
	return ""
}

func itoa(i int) string { return strconv.Itoa(i) }
