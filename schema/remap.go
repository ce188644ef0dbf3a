package schema

// RemapTable maps unresolved references, as written at a declaration
// site, to their fully-qualified resolved form.
type RemapTable struct {
	entries map[string]TypeReference
}

// NewRemapTable returns an empty table.
func NewRemapTable() *RemapTable {
	return &RemapTable{entries: make(map[string]TypeReference)}
}

// Add records that from resolves to to. Later entries for the same
// unresolved reference win.
func (t *RemapTable) Add(from, to TypeReference) {
	t.entries[from.String()] = to
}

// Lookup returns the resolved form of ref.
func (t *RemapTable) Lookup(ref TypeReference) (TypeReference, bool) {
	to, ok := t.entries[ref.String()]
	return to, ok
}

// Len returns the number of entries.
func (t *RemapTable) Len() int { return len(t.entries) }

// RemapEntry is one row of a RemapTable.
type RemapEntry struct {
	From string
	To   TypeReference
}

// Entries returns the rows ordered by From.
func (t *RemapTable) Entries() []RemapEntry {
	out := make([]RemapEntry, 0, len(t.entries))
	for _, from := range sortedKeys(t.entries) {
		out = append(out, RemapEntry{From: from, To: t.entries[from].Clone()})
	}
	return out
}

// RemapType rewrites every field reference of t found in table, and the
// fallback of a primitive, and returns how many were rewritten. A
// reference with no entry of its own has its arguments remapped instead.
// Type parameters declared by t survive: wherever the original reference
// used one of them as an argument, the resolved reference keeps the
// parameter instead of whatever the table substituted there.
func RemapType(t Type, table *RemapTable) int {
	params := make(map[string]bool, len(t.TypeParameters()))
	for _, p := range t.TypeParameters() {
		params[p.Name] = true
	}
	return WalkType[int](&remapper{BaseVisitor: BaseVisitor[int]{Sum{}}, table: table, params: params}, t)
}

// RemapReference applies table to a reference outside any definition,
// such as a function's input or output type.
func RemapReference(ref *TypeReference, table *RemapTable) bool {
	r := &remapper{table: table}
	next, ok := r.remap(*ref)
	if ok {
		*ref = next
	}
	return ok
}

// Remap applies table to every definition in ts.
func (ts *Typespace) Remap(table *RemapTable) int {
	n := 0
	for _, t := range ts.types {
		n += RemapType(t, table)
	}
	return n
}

// Remap applies table to the typespace of direction d and to the
// references functions make into it.
func (s *Schema) Remap(d Direction, table *RemapTable) int {
	n := s.Types(d).Remap(table)
	for i := range s.Functions {
		for _, ref := range s.Functions[i].References(d) {
			if RemapReference(ref, table) {
				n++
			}
		}
	}
	return n
}

type remapper struct {
	BaseVisitor[int]
	table  *RemapTable
	params map[string]bool
}

func (r *remapper) VisitField(_ Type, f *Field) int {
	next, ok := r.remap(f.Type)
	if !ok {
		return 0
	}
	f.Type = next
	return 1
}

func (r *remapper) VisitTypeName(t Type, _ *string) int {
	p, ok := t.(*Primitive)
	if !ok || p.Fallback == nil {
		return 0
	}
	next, ok := r.remap(*p.Fallback)
	if !ok {
		return 0
	}
	*p.Fallback = next
	return 1
}

func (r *remapper) remap(ref TypeReference) (TypeReference, bool) {
	if r.params[ref.Name] && len(ref.Arguments) == 0 {
		return ref, false
	}
	if resolved, ok := r.table.Lookup(ref); ok {
		return restoreParameters(ref, resolved, r.params), true
	}
	changed := false
	out := ref
	for i, a := range ref.Arguments {
		next, ok := r.remap(a)
		if !ok {
			continue
		}
		if !changed {
			out = ref.Clone()
			changed = true
		}
		out.Arguments[i] = next
	}
	return out, changed
}

// restoreParameters walks original and resolved in parallel. Where the
// original argument is a declared parameter it is kept verbatim; where
// both sides have the same argument count the walk recurses; otherwise the
// resolved argument stands.
func restoreParameters(original, resolved TypeReference, params map[string]bool) TypeReference {
	out := resolved.Clone()
	if len(original.Arguments) != len(resolved.Arguments) {
		return out
	}
	for i, arg := range original.Arguments {
		if params[arg.Name] && len(arg.Arguments) == 0 {
			out.Arguments[i] = arg.Clone()
			continue
		}
		out.Arguments[i] = restoreParameters(arg, resolved.Arguments[i], params)
	}
	return out
}
