package schemagen

import (
	"github.com/broady/apischema/schema"
)

// enrich upgrades a reflected schema with definitions read from source.
// Synthetic generic instances are replaced by references to the generic
// definition, reflected definitions are swapped for their source versions
// (which carry docs and const-group enums), and any definition those pull
// in is copied over. It returns the number of definitions taken from src.
func enrich(s *schema.Schema, src *schema.Typespace, instances *schema.RemapTable) int {
	generic := schema.NewRemapTable()
	var synthetic []string
	for _, e := range instances.Entries() {
		if src.Has(e.To.Name) {
			generic.Add(schema.Ref(e.From), e.To)
			synthetic = append(synthetic, e.From)
		}
	}

	n := 0
	for _, d := range []schema.Direction{schema.Input, schema.Output} {
		ts := s.Types(d)
		if generic.Len() > 0 {
			s.Remap(d, generic)
			for _, from := range synthetic {
				ts.Remove(from)
			}
		}

		queue := ts.Names()
		for i := range s.Functions {
			for _, ref := range s.Functions[i].References(d) {
				queue = appendNames(queue, *ref)
			}
		}
		seen := make(map[string]bool)
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			if seen[name] {
				continue
			}
			seen[name] = true
			t, ok := src.Get(name)
			if !ok {
				if t, ok := ts.Get(name); ok {
					queue = append(queue, schema.ReferencedNames(t)...)
				}
				continue
			}
			t = schema.Clone(t)
			ts.Replace(t)
			n++
			queue = append(queue, schema.ReferencedNames(t)...)
		}
	}
	return n
}

func appendNames(names []string, ref schema.TypeReference) []string {
	names = append(names, ref.Name)
	for _, a := range ref.Arguments {
		names = appendNames(names, a)
	}
	return names
}
