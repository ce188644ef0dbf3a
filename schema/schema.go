package schema

import (
	"strings"
)

// Direction selects the input or output side of a schema.
type Direction int

const (
	Input Direction = iota
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Schema is a complete API description: functions plus the types they
// exchange. Input and output types live in separate typespaces because a
// type can deserialize differently from how it serializes.
type Schema struct {
	ID          SymbolID   `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Functions   []Function `json:"functions"`
	InputTypes  Typespace  `json:"input_types"`
	OutputTypes Typespace  `json:"output_types"`
}

// New returns an empty schema.
func New(name, description string) *Schema {
	return &Schema{Name: name, Description: description}
}

// Types returns the typespace for the given direction.
func (s *Schema) Types(d Direction) *Typespace {
	if d == Output {
		return &s.OutputTypes
	}
	return &s.InputTypes
}

// AddFunction appends fn.
func (s *Schema) AddFunction(fn Function) {
	s.Functions = append(s.Functions, fn)
}

// FindFunction returns the function mounted at path/name.
func (s *Schema) FindFunction(path, name string) *Function {
	for i := range s.Functions {
		fn := &s.Functions[i]
		if normalizePath(fn.Path) == normalizePath(path) && fn.Name == name {
			return fn
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Schema) Clone() *Schema {
	out := &Schema{
		ID:          s.ID.clone(),
		Name:        s.Name,
		Description: s.Description,
		InputTypes:  *s.InputTypes.Clone(),
		OutputTypes: *s.OutputTypes.Clone(),
	}
	if s.Functions != nil {
		out.Functions = make([]Function, len(s.Functions))
		for i, fn := range s.Functions {
			out.Functions[i] = fn.clone()
		}
	}
	return out
}

// SerializationMode is a wire encoding a function accepts.
type SerializationMode string

const (
	SerializationJSON    SerializationMode = "json"
	SerializationMsgpack SerializationMode = "msgpack"
)

// Function is a single API operation.
type Function struct {
	ID          SymbolID `json:"id"`
	Name        string   `json:"name"`
	Path        string   `json:"path,omitempty"`
	Description string   `json:"description,omitempty"`
	Deprecated  string   `json:"deprecated,omitempty"`

	// InputType and InputHeaders resolve against the input typespace.
	InputType    *TypeReference `json:"input_type,omitempty"`
	InputHeaders *TypeReference `json:"input_headers,omitempty"`

	// OutputType and ErrorType resolve against the output typespace.
	OutputType *TypeReference `json:"output_type,omitempty"`
	ErrorType  *TypeReference `json:"error_type,omitempty"`

	// Readonly functions have no side effects and may be served over GET.
	Readonly bool `json:"readonly,omitempty"`

	Serialization []SerializationMode `json:"serialization,omitempty"`
}

// MountPath returns the URL path the function is served at.
func (fn *Function) MountPath() string {
	p := normalizePath(fn.Path)
	if p == "" {
		return "/" + fn.Name
	}
	return "/" + p + "/" + fn.Name
}

// References returns pointers to the function's type references for d.
// Absent references are skipped.
func (fn *Function) References(d Direction) []*TypeReference {
	var refs []*TypeReference
	add := func(r *TypeReference) {
		if r != nil {
			refs = append(refs, r)
		}
	}
	if d == Input {
		add(fn.InputType)
		add(fn.InputHeaders)
	} else {
		add(fn.OutputType)
		add(fn.ErrorType)
	}
	return refs
}

func (fn Function) clone() Function {
	out := fn
	out.ID = fn.ID.clone()
	cp := func(r *TypeReference) *TypeReference {
		if r == nil {
			return nil
		}
		c := r.Clone()
		return &c
	}
	out.InputType = cp(fn.InputType)
	out.InputHeaders = cp(fn.InputHeaders)
	out.OutputType = cp(fn.OutputType)
	out.ErrorType = cp(fn.ErrorType)
	if fn.Serialization != nil {
		out.Serialization = append([]SerializationMode(nil), fn.Serialization...)
	}
	return out
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// PrependPath prefixes every function path with prefix.
func (s *Schema) PrependPath(prefix string) {
	prefix = normalizePath(prefix)
	if prefix == "" {
		return
	}
	for i := range s.Functions {
		p := normalizePath(s.Functions[i].Path)
		if p == "" {
			s.Functions[i].Path = prefix
		} else {
			s.Functions[i].Path = prefix + "/" + p
		}
	}
}
