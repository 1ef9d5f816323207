// Package symtable implements hierarchical, scope-owning symbol tables.
package symtable

import (
	"github.com/gmofishsauce/tauc/internal/ast"
)

// Symbol pairs a name with the AST node that defines it.
type Symbol struct {
	Name string
	Decl *ast.Node
}

// Table is one lexical scope: a map of locally-declared symbols plus a
// pointer to the enclosing scope. Lookup falls through to the parent on
// miss. A table owns its symbols and its list of child tables, mirroring
// the teacher's map[string]*Symbol scopes (lang/yparse/symtab.go) but
// generalized from a flat global+function split into an arbitrarily deep
// scope chain, since the analyzer (spec's scope-stack walk) needs a child
// scope per block/if/while/for/function/module.
type Table struct {
	parent   *Table
	children []*Table
	symbols  map[string]*Symbol
}

// NewRoot returns a fresh table with no parent.
func NewRoot() *Table {
	return &Table{symbols: make(map[string]*Symbol)}
}

// NewChild returns a new scope nested inside t, recorded as one of t's
// children so the whole tree can be walked or discarded together.
func (t *Table) NewChild() *Table {
	child := &Table{parent: t, symbols: make(map[string]*Symbol)}
	t.children = append(t.children, child)
	return child
}

// Parent returns the enclosing scope, or nil for a root table.
func (t *Table) Parent() *Table { return t.parent }

// Insert adds name to this table. If name is already bound in this exact
// table, Insert returns the previously-bound symbol (for the analyzer to
// report as a redeclaration) and leaves the table unchanged: per spec, a
// table keeps only the first binding for a name.
func (t *Table) Insert(name string, decl *ast.Node) (shadowed *Symbol, isRedecl bool) {
	if existing, ok := t.symbols[name]; ok {
		return existing, true
	}
	t.symbols[name] = &Symbol{Name: name, Decl: decl}
	return nil, false
}

// LookupLocal returns the symbol bound to name in this table only, without
// consulting the parent chain.
func (t *Table) LookupLocal(name string) (*Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// Lookup returns the symbol bound to name in this table or the nearest
// enclosing one, and the table that owns it (useful for the analyzer's
// shadowing-warning check: the symbol exists, but not in the current
// table).
func (t *Table) Lookup(name string) (*Symbol, *Table, bool) {
	for scope := t; scope != nil; scope = scope.parent {
		if s, ok := scope.symbols[name]; ok {
			return s, scope, true
		}
	}
	return nil, nil, false
}

// IsShadowing reports whether binding name in t would shadow a symbol
// visible from an enclosing scope (not a redeclaration in t itself).
func (t *Table) IsShadowing(name string) bool {
	if t.parent == nil {
		return false
	}
	_, _, ok := t.parent.Lookup(name)
	return ok
}
