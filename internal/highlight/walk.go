// Package highlight resolves which bars are emphasized for a render pass.
package highlight

import (
	"slices"

	"github.com/hylla/tidslinje/internal/bars"
)

// Set is a set of bar ids.
type Set map[string]struct{}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id string) { s[id] = struct{}{} }

func (s Set) Len() int { return len(s) }

// IDs returns the members in sorted order.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set holding the members of both.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for id := range s {
		out.Add(id)
	}
	for id := range other {
		out.Add(id)
	}
	return out
}

// Walk adds start and every id reachable through next to visited. Ids already
// in visited are not expanded again, so cyclic input terminates.
func Walk(start string, next func(id string) []string, visited Set) {
	if start == "" {
		return
	}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Has(id) {
			continue
		}
		visited.Add(id)
		for _, n := range next(id) {
			if !visited.Has(n) {
				stack = append(stack, n)
			}
		}
	}
}

// Closure collects id, its children transitively and its dependencies
// transitively. Unknown ids yield an empty set.
func Closure(m bars.Model, id string) Set {
	if _, ok := m.ByID(id); !ok {
		return Set{}
	}
	children := Set{}
	Walk(id, m.ChildIDs, children)
	dependencies := Set{}
	Walk(id, m.DependencyIDs, dependencies)
	return children.Union(dependencies)
}
