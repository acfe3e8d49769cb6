// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ted

import (
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ColumnSpec declares one column of a table predicate: its name, static
// type, and whether it carries a key or general index, per §3/§6.
type ColumnSpec struct {
	Name    string
	Type    reflect.Type
	Key     bool
	Indexed bool
}

// Column declares a column named name holding values of type T.
func Column[T any](name string) ColumnSpec {
	var zero T
	return ColumnSpec{Name: name, Type: reflect.TypeOf(zero)}
}

// AsKey marks the column as carrying a key index: AddRow fails with
// DuplicateKey if a row with an equal value in this column already exists.
func (c ColumnSpec) AsKey() ColumnSpec {
	c.Key = true
	return c
}

// AsIndexed marks the column as carrying a general (non-unique) index,
// usable by GeneralIndexScan. Ignored if the column is also a key.
func (c ColumnSpec) AsIndexed() ColumnSpec {
	c.Indexed = true
	return c
}

// PredicateKind distinguishes the three predicate variants of §3: a stored
// table, a built-in primitive, or a non-recursive macro definition.
type PredicateKind int

const (
	// TableKind predicates store rows directly (extensional) or via rules
	// (intensional); which one is decided by the first write (AddRow vs.
	// If/Fact), and mixing the two is a ModeConflict.
	TableKind PredicateKind = iota
	// PrimitiveKind predicates are the built-ins constructed by the
	// package-level functions (And, Or, Not, ...); ted does not expose a
	// way for host code to register additional primitives -- §6 lists a
	// fixed primitive set, and that is also the limit of PrimitiveKind.
	PrimitiveKind
	// DefinitionKind predicates are inlined macros: calling one splices its
	// single clause's body into the caller at rule-compile time (§4.2).
	DefinitionKind
)

func (k PredicateKind) String() string {
	switch k {
	case TableKind:
		return "Table"
	case PrimitiveKind:
		return "Primitive"
	case DefinitionKind:
		return "Definition"
	default:
		return "?"
	}
}

// definitionBody holds a Definition predicate's single non-recursive clause:
// formal parameters and the goals substituted for a call site (§4.2, §6).
type definitionBody struct {
	formals []*Variable
	body    []*Goal
}

// Predicate is a named, typed relation: a table backed by stored rows, a
// rule-derived intensional table, or a non-recursive definition macro.
// Build one with Database.NewTable or Database.NewDefinition.
type Predicate struct {
	id      uuid.UUID
	Name    string
	Kind    PredicateKind
	Columns []ColumnSpec

	db     *Database
	table  *Table // nil for Primitive/Definition
	rules  []*Rule
	ruled  bool // true once If has registered at least one rule
	filled bool // true once AddRow has been called at least once

	definition *definitionBody

	upToDate bool
	deps     map[*Predicate]bool // predicates this one's rules call directly
}

func newTablePredicate(db *Database, name string, columns []ColumnSpec, unique bool, initialCapacity int, logger *zap.Logger) *Predicate {
	return &Predicate{
		id: uuid.New(), Name: name, Kind: TableKind, Columns: columns,
		db: db, table: newTable(name, unique, columns, initialCapacity, logger),
		deps: map[*Predicate]bool{}, upToDate: true,
	}
}

func newDefinitionPredicate(db *Database, name string, columns []ColumnSpec, formals []*Variable, body []*Goal) *Predicate {
	return &Predicate{
		id: uuid.New(), Name: name, Kind: DefinitionKind, Columns: columns,
		db: db, definition: &definitionBody{formals: formals, body: body},
	}
}

// AddRow inserts a row directly into a table predicate. Calling AddRow on a
// predicate that already has rules registered via If is a ModeConflict
// (§6); mixing insertion order is not otherwise restricted.
func (p *Predicate) AddRow(values ...any) (bool, error) {
	if p.Kind != TableKind {
		return false, newError(ErrModeConflict, "predicate %s is not a table predicate", p.Name)
	}
	if p.ruled {
		return false, newError(ErrModeConflict, "predicate %s has rules; cannot AddRow directly", p.Name)
	}
	p.filled = true
	ok, err := p.table.addRow(Row(values))
	if err != nil {
		return false, err
	}
	if ok {
		p.db.invalidateDependents(p)
	}
	return ok, nil
}

// Length is the predicate's current row count (after EnsureUpToDate for a
// ruled predicate).
func (p *Predicate) Length() int {
	if p.table == nil {
		return 0
	}
	return p.table.Length()
}

// Row returns the i'th row of a table predicate, in insertion order.
func (p *Predicate) Row(i int) Row {
	return p.table.Row(i)
}

// Clear empties an extensional table predicate. Calling Clear on a ruled
// predicate is a ModeConflict -- use EnsureUpToDate to rederive instead.
func (p *Predicate) Clear() error {
	if p.ruled {
		return newError(ErrModeConflict, "predicate %s is rule-derived; it is cleared by the scheduler, not directly", p.Name)
	}
	p.table.Clear()
	p.db.invalidateDependents(p)
	return nil
}

// ContainsRow reports whether r already exists in the predicate's table, per
// §4.7, using the row-set when available and a full scan otherwise.
func (p *Predicate) ContainsRow(r Row) (bool, error) {
	if p.table.set != nil {
		return p.table.ContainsRowUsingRowSet(r)
	}
	return p.table.ContainsRow(r)
}

// EnsureUpToDate recomputes this predicate and every predicate it depends on
// (transitively) if they are stale, per §4.6.
func (p *Predicate) EnsureUpToDate() error {
	return p.db.ensureUpToDate(p)
}
