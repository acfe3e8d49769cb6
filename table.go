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
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Table is the append-only row store backing a table predicate, per §3/§4.7.
// Capacity is always a power of two >= 2; rows live densely in [0, length).
type Table struct {
	id       uuid.UUID
	name     string
	columns  []ColumnSpec
	unique   bool
	rows     []Row
	length   int
	capacity int
	set      *rowSet
	keyIdx   map[int]*keyIndex
	genIdx   map[int]*generalIndex
	logger   *zap.Logger
}

const minTableCapacity = 2

func newTable(name string, unique bool, columns []ColumnSpec, initialCapacity int, logger *zap.Logger) *Table {
	cap := nextPow2(initialCapacity)
	if cap < minTableCapacity {
		cap = minTableCapacity
	}
	t := &Table{
		id: uuid.New(), name: name, columns: columns, unique: unique,
		capacity: cap, rows: make([]Row, cap),
		keyIdx: map[int]*keyIndex{}, genIdx: map[int]*generalIndex{}, logger: logger,
	}
	if unique {
		types := make([]reflect.Type, len(columns))
		for i, c := range columns {
			types[i] = c.Type
		}
		t.set = newRowSet(types, t.capacity)
	}
	for i, c := range columns {
		if c.Key {
			t.keyIdx[i] = newKeyIndex(i, c.Type, t.capacity)
		} else if c.Indexed {
			t.genIdx[i] = newGeneralIndex(i, c.Type, t.capacity)
		}
	}
	return t
}

// Length is the number of rows currently stored.
func (t *Table) Length() int { return t.length }

// Row returns the i'th row in insertion order.
func (t *Table) Row(i int) Row { return t.rows[i] }

func (t *Table) grow() error {
	newCap := t.capacity * 2
	newRows := make([]Row, newCap)
	copy(newRows, t.rows[:t.length])
	t.rows = newRows
	t.capacity = newCap
	if t.set != nil {
		if err := t.set.resize(newCap, t.rows[:t.length]); err != nil {
			return err
		}
	}
	for _, idx := range t.keyIdx {
		if err := idx.resize(newCap, t.rows[:t.length]); err != nil {
			return err
		}
	}
	for _, idx := range t.genIdx {
		if err := idx.resize(newCap, t.rows[:t.length]); err != nil {
			return err
		}
	}
	if t.logger != nil {
		t.logger.Debug("table capacity doubled", zap.String("table", t.name), zap.String("table_id", t.id.String()), zap.Int("capacity", newCap))
	}
	return nil
}

// addRow appends row, rejecting arity/type mismatches and enforcing key
// uniqueness before any mutation so a DuplicateKey error leaves the table
// untouched, per §7's policy.
func (t *Table) addRow(row Row) (bool, error) {
	if len(row) != len(t.columns) {
		return false, fmt.Errorf("ted: table %s expects %d columns, got %d", t.name, len(t.columns), len(row))
	}
	for i, c := range t.columns {
		if row[i] == nil {
			continue
		}
		if got := reflect.TypeOf(row[i]); got != c.Type {
			return false, fmt.Errorf("ted: table %s column %d (%s) expects %s, got %s", t.name, i, c.Name, c.Type, got)
		}
	}
	for _, idx := range t.keyIdx {
		if _, found, err := idx.find(row[idx.column]); err != nil {
			return false, err
		} else if found {
			return false, newError(ErrDuplicateKey, "table %s: duplicate key %v on column %d (%s)", t.name, row[idx.column], idx.column, t.columns[idx.column].Name)
		}
	}
	if t.set != nil {
		contained, err := t.set.contains(row)
		if err != nil {
			return false, err
		}
		if contained {
			return false, nil
		}
	}
	if t.length == t.capacity {
		if err := t.grow(); err != nil {
			return false, err
		}
	}
	rowNum := uint32(t.length)
	t.rows[t.length] = row
	t.length++
	if t.set != nil {
		if _, err := t.set.insert(row); err != nil {
			return false, err
		}
	}
	for _, idx := range t.keyIdx {
		if err := idx.insert(row[idx.column], rowNum); err != nil {
			return false, err
		}
	}
	for _, idx := range t.genIdx {
		if err := idx.insert(row[idx.column], rowNum); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Clear resets length to zero and empties the row-set and every index,
// retaining capacity, per §4.7.
func (t *Table) Clear() {
	t.length = 0
	if t.set != nil {
		t.set.clear()
	}
	for _, idx := range t.keyIdx {
		idx.clear()
	}
	for _, idx := range t.genIdx {
		idx.clear()
	}
}

// ContainsRow does an O(N) scan for a row equal to r in every column.
func (t *Table) ContainsRow(r Row) (bool, error) {
	for i := 0; i < t.length; i++ {
		match := true
		for c := range t.columns {
			eq, err := equalValues(t.columns[c].Type, t.rows[i][c], r[c])
			if err != nil {
				return false, err
			}
			if !eq {
				match = false
				break
			}
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// ContainsRowUsingRowSet is the O(1) equivalent of ContainsRow, available
// only when the table is Unique.
func (t *Table) ContainsRowUsingRowSet(r Row) (bool, error) {
	if t.set == nil {
		return false, fmt.Errorf("ted: table %s is not Unique, no row-set available", t.name)
	}
	return t.set.contains(r)
}

// indexPriority reports the access-path priority of an index, per §3/§4.3:
// keyed indices are fixed at 1000, general indices at 100 * arity.
func (t *Table) indexPriority(keyed bool) int {
	if keyed {
		return priorityKeyed
	}
	return priorityGeneral(len(t.columns))
}

// IndexFor returns whether a (keyed or general) index exists on column c,
// per §4.7's `IndexFor`.
func (t *Table) IndexFor(column int, keyed bool) bool {
	if keyed {
		_, ok := t.keyIdx[column]
		return ok
	}
	_, ok := t.genIdx[column]
	return ok
}
