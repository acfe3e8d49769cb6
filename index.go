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
)

// All three hash structures below (rowSet, keyIndex, generalIndex) are open
// addressed with power-of-two bucket counts and linear probing (stride 1),
// per design note 9 and §4.3/§9. None of them rely on Go's native map or
// `comparable` constraint: every comparison and hash goes through the
// capability table (§6's external type contract), so column types only
// need to be registered once, not be Go-comparable.

func nextPow2(n int) int {
	if n < 2 {
		return 2
	}
	p := 2
	for p < n {
		p *= 2
	}
	return p
}

// keyIndex implements §3's "Keyed(map column→row)": at most one row per
// column value, violations are DuplicateKey.
type keyIndex struct {
	column   int
	typ      reflect.Type
	capacity int
	occupied []bool
	keys     []any
	rows     []uint32
}

// priorityKeyed is the keyed-index access-path priority from §4.3/§9.
const priorityKeyed = 1000

func newKeyIndex(column int, typ reflect.Type, tableCapacity int) *keyIndex {
	n := nextPow2(tableCapacity * 2)
	return &keyIndex{column: column, typ: typ, capacity: n, occupied: make([]bool, n), keys: make([]any, n), rows: make([]uint32, n)}
}

func (k *keyIndex) find(v any) (slot int, found bool, err error) {
	h, err := hashValue(k.typ, v)
	if err != nil {
		return 0, false, err
	}
	mask := uint64(k.capacity - 1)
	start := int(h & mask)
	for i := 0; i < k.capacity; i++ {
		idx := (start + i) % k.capacity
		if !k.occupied[idx] {
			return idx, false, nil
		}
		eq, err := equalValues(k.typ, k.keys[idx], v)
		if err != nil {
			return 0, false, err
		}
		if eq {
			return idx, true, nil
		}
	}
	return 0, false, fmt.Errorf("ted: key index on column %d is full", k.column)
}

func (k *keyIndex) lookup(v any) (uint32, bool, error) {
	idx, found, err := k.find(v)
	if err != nil || !found {
		return NoRow, false, err
	}
	return k.rows[idx], true, nil
}

func (k *keyIndex) insert(v any, row uint32) error {
	idx, found, err := k.find(v)
	if err != nil {
		return err
	}
	if found {
		return newError(ErrDuplicateKey, "duplicate key value %v on column %d", v, k.column)
	}
	k.occupied[idx] = true
	k.keys[idx] = v
	k.rows[idx] = row
	return nil
}

func (k *keyIndex) clear() {
	for i := range k.occupied {
		k.occupied[i] = false
		k.keys[i] = nil
		k.rows[i] = NoRow
	}
}

func (k *keyIndex) resize(tableCapacity int, rows []Row) error {
	fresh := newKeyIndex(k.column, k.typ, tableCapacity)
	for i, r := range rows {
		if err := fresh.insert(r[k.column], uint32(i)); err != nil {
			return err
		}
	}
	*k = *fresh
	return nil
}

// generalIndex implements §3's "General(open-addressed table of buckets,
// each a linked list of row numbers sharing a column value)": many rows may
// share one value. Chains are threaded through rowNext, a parallel array
// indexed by row number (one slot per table row, not per bucket).
type generalIndex struct {
	column    int
	typ       reflect.Type
	bucketCap int
	occupied  []bool
	keys      []any
	heads     []uint32
	rowNext   []uint32
}

// priorityGeneral returns the general-index access-path priority from
// §4.3/§9: 100 * number of columns. Since each index covers exactly one
// column, that's a constant for a given predicate arity.
func priorityGeneral(arity int) int { return 100 * arity }

func newGeneralIndex(column int, typ reflect.Type, tableCapacity int) *generalIndex {
	n := nextPow2(tableCapacity * 2)
	rn := make([]uint32, tableCapacity)
	for i := range rn {
		rn[i] = NoRow
	}
	return &generalIndex{
		column: column, typ: typ, bucketCap: n,
		occupied: make([]bool, n), keys: make([]any, n),
		heads: make([]uint32, n), rowNext: rn,
	}
}

func (g *generalIndex) findBucket(v any) (slot int, found bool, err error) {
	h, err := hashValue(g.typ, v)
	if err != nil {
		return 0, false, err
	}
	mask := uint64(g.bucketCap - 1)
	start := int(h & mask)
	for i := 0; i < g.bucketCap; i++ {
		idx := (start + i) % g.bucketCap
		if !g.occupied[idx] {
			return idx, false, nil
		}
		eq, err := equalValues(g.typ, g.keys[idx], v)
		if err != nil {
			return 0, false, err
		}
		if eq {
			return idx, true, nil
		}
	}
	return 0, false, fmt.Errorf("ted: general index on column %d is full", g.column)
}

// headFor returns the chain head row for v, or NoRow if v is absent.
func (g *generalIndex) headFor(v any) (uint32, error) {
	idx, found, err := g.findBucket(v)
	if err != nil || !found {
		return NoRow, err
	}
	return g.heads[idx], nil
}

func (g *generalIndex) insert(v any, row uint32) error {
	idx, found, err := g.findBucket(v)
	if err != nil {
		return err
	}
	if !found {
		g.occupied[idx] = true
		g.keys[idx] = v
		g.heads[idx] = row
		g.rowNext[row] = NoRow
		return nil
	}
	g.rowNext[row] = g.heads[idx]
	g.heads[idx] = row
	return nil
}

func (g *generalIndex) clear() {
	for i := range g.occupied {
		g.occupied[i] = false
		g.keys[i] = nil
		g.heads[i] = NoRow
	}
	for i := range g.rowNext {
		g.rowNext[i] = NoRow
	}
}

func (g *generalIndex) resize(tableCapacity int, rows []Row) error {
	fresh := newGeneralIndex(g.column, g.typ, tableCapacity)
	for i, r := range rows {
		if err := fresh.insert(r[g.column], uint32(i)); err != nil {
			return err
		}
	}
	*g = *fresh
	return nil
}

// rowSet implements the Unique table's companion hash set keyed on the
// whole tuple (§3), used both to silently drop duplicate Add calls and to
// serve RowSetProbe (§4.3's highest-priority access path).
type rowSet struct {
	colTypes []reflect.Type
	capacity int
	occupied []bool
	tuples   []Row
}

func newRowSet(colTypes []reflect.Type, tableCapacity int) *rowSet {
	n := nextPow2(tableCapacity * 2)
	return &rowSet{colTypes: colTypes, capacity: n, occupied: make([]bool, n), tuples: make([]Row, n)}
}

func (s *rowSet) hashRow(r Row) (uint64, error) {
	h := uint64(14695981039346656037)
	for i, v := range r {
		hv, err := hashValue(s.colTypes[i], v)
		if err != nil {
			return 0, err
		}
		h = (h ^ hv) * 1099511628211
	}
	return h, nil
}

func (s *rowSet) equalRow(a, b Row) (bool, error) {
	for i := range a {
		eq, err := equalValues(s.colTypes[i], a[i], b[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

func (s *rowSet) contains(r Row) (bool, error) {
	h, err := s.hashRow(r)
	if err != nil {
		return false, err
	}
	mask := uint64(s.capacity - 1)
	start := int(h & mask)
	for i := 0; i < s.capacity; i++ {
		idx := (start + i) % s.capacity
		if !s.occupied[idx] {
			return false, nil
		}
		eq, err := s.equalRow(s.tuples[idx], r)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, fmt.Errorf("ted: row-set is full")
}

// insert returns false if r was already present (dropped per §4.7).
func (s *rowSet) insert(r Row) (bool, error) {
	h, err := s.hashRow(r)
	if err != nil {
		return false, err
	}
	mask := uint64(s.capacity - 1)
	start := int(h & mask)
	for i := 0; i < s.capacity; i++ {
		idx := (start + i) % s.capacity
		if !s.occupied[idx] {
			s.occupied[idx] = true
			s.tuples[idx] = r.clone()
			return true, nil
		}
		eq, err := s.equalRow(s.tuples[idx], r)
		if err != nil {
			return false, err
		}
		if eq {
			return false, nil
		}
	}
	return false, fmt.Errorf("ted: row-set is full")
}

func (s *rowSet) clear() {
	for i := range s.occupied {
		s.occupied[i] = false
		s.tuples[i] = nil
	}
}

func (s *rowSet) resize(tableCapacity int, rows []Row) error {
	fresh := newRowSet(s.colTypes, tableCapacity)
	for _, r := range rows {
		if _, err := fresh.insert(r); err != nil {
			return err
		}
	}
	*s = *fresh
	return nil
}
