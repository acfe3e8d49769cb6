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

// Call is the uniform backtracking iterator of §4.4: Reset positions before
// the first solution (idempotent), NextSolution advances to the next one,
// writing bound cells and returning whether one was found. Every primitive,
// every table access path, and rule-body conjunction/disjunction itself is a
// Call, so the nested-loop driver in runConjunction works for all of them.
type Call interface {
	Reset()
	NextSolution() (bool, error)
}

// compileTableGoal selects an access path for a call against a table
// predicate, per §4.3's priority order, and compiles the goal's arguments
// into MatchOperations via the analyzer.
func compileTableGoal(a *analyzer, g *Goal) (Call, error) {
	p := g.pred
	ops := make([]MatchOperation, len(g.args))
	for i, arg := range g.args {
		op, cell, err := a.classify(arg)
		if err != nil {
			return nil, err
		}
		ops[i] = MatchOperation{Op: op, Cell: cell}
	}

	fullyInstantiated := true
	for _, op := range ops {
		if op.Op != OpConstant && op.Op != OpRead {
			fullyInstantiated = false
			break
		}
	}

	t := p.table

	// (1) Unique table + fully instantiated pattern: RowSetProbe.
	if t.set != nil && fullyInstantiated {
		return &rowSetProbeCall{table: t, ops: ops}, nil
	}

	// (2)/(3): among columns with an instantiated (Constant or Read)
	// argument, pick the highest-priority available index.
	bestCol := -1
	bestKeyed := false
	bestPriority := -1
	for i, op := range ops {
		if op.Op != OpConstant && op.Op != OpRead {
			continue
		}
		if t.IndexFor(i, true) {
			if pr := t.indexPriority(true); pr > bestPriority {
				bestPriority, bestCol, bestKeyed = pr, i, true
			}
		} else if t.IndexFor(i, false) {
			if pr := t.indexPriority(false); pr > bestPriority {
				bestPriority, bestCol, bestKeyed = pr, i, false
			}
		}
	}
	if bestCol >= 0 && bestKeyed {
		return &keyIndexProbeCall{table: t, column: bestCol, ops: ops}, nil
	}
	if bestCol >= 0 {
		return &generalIndexScanCall{table: t, column: bestCol, ops: ops}, nil
	}

	// (4) FullScan.
	return &fullScanCall{table: t, ops: ops}, nil
}

// bindRow attempts to match row against ops: Constant/Read positions must
// equal the row's value, Write positions bind the cell, Ignore positions
// are skipped. Returns false (with all Writes already performed for the
// matched prefix left in place, per §4.4's "on false, cells unspecified")
// as soon as a mismatch is found.
func bindRow(ops []MatchOperation, colTypes []ColumnSpec, row Row) (bool, error) {
	for i, op := range ops {
		switch op.Op {
		case OpIgnore:
			continue
		case OpWrite:
			op.Cell.Bind(row[i])
		case OpConstant, OpRead:
			eq, err := equalValues(colTypes[i].Type, op.Cell.Value(), row[i])
			if err != nil {
				return false, err
			}
			if !eq {
				return false, nil
			}
		}
	}
	return true, nil
}

// fullScanCall implements §4.3's fallback access path: linear scan of every
// row, matching via bindRow.
type fullScanCall struct {
	table *Table
	ops   []MatchOperation
	next  int
}

func (c *fullScanCall) Reset() { c.next = 0 }

func (c *fullScanCall) NextSolution() (bool, error) {
	for c.next < c.table.Length() {
		row := c.table.Row(c.next)
		c.next++
		ok, err := bindRow(c.ops, c.table.columns, row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// generalIndexScanCall walks the chain of rows sharing the instantiated
// value of column, per §4.3's GeneralIndexScan.
type generalIndexScanCall struct {
	table  *Table
	column int
	ops    []MatchOperation
	cur    uint32
	seeded bool
}

func (c *generalIndexScanCall) Reset() {
	c.cur = NoRow
	c.seeded = false
}

func (c *generalIndexScanCall) NextSolution() (bool, error) {
	idx := c.table.genIdx[c.column]
	if !c.seeded {
		v := c.ops[c.column].Cell.Value()
		head, err := idx.headFor(v)
		if err != nil {
			return false, err
		}
		c.cur = head
		c.seeded = true
	} else if c.cur != NoRow {
		c.cur = idx.rowNext[c.cur]
	}
	for c.cur != NoRow {
		row := c.table.Row(int(c.cur))
		this := c.cur
		ok, err := bindRow(c.ops, c.table.columns, row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		c.cur = idx.rowNext[this]
	}
	return false, nil
}

// keyIndexProbeCall looks up at most one row via a key index, per §4.3's
// KeyIndexProbe: succeeds at most once per Reset.
type keyIndexProbeCall struct {
	table   *Table
	column  int
	ops     []MatchOperation
	done    bool
	matched bool
}

func (c *keyIndexProbeCall) Reset() {
	c.done = false
	c.matched = false
}

func (c *keyIndexProbeCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	idx := c.table.keyIdx[c.column]
	v := c.ops[c.column].Cell.Value()
	row, found, err := idx.lookup(v)
	if err != nil || !found {
		return false, err
	}
	ok, err := bindRow(c.ops, c.table.columns, c.table.Row(int(row)))
	if err != nil {
		return false, err
	}
	return ok, nil
}

// rowSetProbeCall is §4.3's top-priority access path: a fully instantiated
// pattern against a Unique table is a single O(1) membership test.
type rowSetProbeCall struct {
	table *Table
	ops   []MatchOperation
	done  bool
}

func (c *rowSetProbeCall) Reset() { c.done = false }

func (c *rowSetProbeCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	row := make(Row, len(c.ops))
	for i, op := range c.ops {
		row[i] = op.Cell.Value()
	}
	return c.table.ContainsRowUsingRowSet(row)
}

// runConjunction drives calls with the fixed nested-loop backtracker of
// §4.4, invoking emit() once per joint solution. It stops and returns the
// first error raised by any call or by emit.
func runConjunction(calls []Call, emit func() error) error {
	if len(calls) == 0 {
		return emit()
	}
	i := 0
	calls[0].Reset()
	for i >= 0 {
		ok, err := calls[i].NextSolution()
		if err != nil {
			return err
		}
		if ok {
			if i == len(calls)-1 {
				if err := emit(); err != nil {
					return err
				}
			} else {
				i++
				calls[i].Reset()
			}
		} else {
			i--
		}
	}
	return nil
}
