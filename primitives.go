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

import "reflect"

// andCall drives sub-calls with the fixed nested-loop backtracker of §4.4,
// resumable one solution per NextSolution call rather than all at once --
// the same shape as runConjunction, but exposed as a Call so And nests
// inside a larger conjunction or inside Or/Not/Maximal.
type andCall struct {
	calls   []Call
	i       int
	started bool
	didOne  bool // for the zero-calls case: And() succeeds exactly once
}

func newAndCall(calls []Call) *andCall { return &andCall{calls: calls} }

func (c *andCall) Reset() {
	c.i = 0
	c.started = false
	c.didOne = false
	if len(c.calls) > 0 {
		c.calls[0].Reset()
	}
}

func (c *andCall) NextSolution() (bool, error) {
	if len(c.calls) == 0 {
		if c.didOne {
			return false, nil
		}
		c.didOne = true
		return true, nil
	}
	for c.i >= 0 {
		ok, err := c.calls[c.i].NextSolution()
		if err != nil {
			return false, err
		}
		if ok {
			if c.i == len(c.calls)-1 {
				return true, nil
			}
			c.i++
			c.calls[c.i].Reset()
		} else {
			c.i--
		}
	}
	return false, nil
}

// orCall tries each branch's Call to exhaustion in order, per §4.5: each
// branch was compiled by its own forked analyzer, so bindings don't leak
// between branches except through cells every branch shares (variables
// bound outside the Or).
type orCall struct {
	calls []Call
	i     int
}

func newOrCall(calls []Call) *orCall {
	c := &orCall{calls: calls}
	return c
}

func (c *orCall) Reset() {
	c.i = 0
	if len(c.calls) > 0 {
		c.calls[0].Reset()
	}
}

func (c *orCall) NextSolution() (bool, error) {
	for c.i < len(c.calls) {
		ok, err := c.calls[c.i].NextSolution()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		c.i++
		if c.i < len(c.calls) {
			c.calls[c.i].Reset()
		}
	}
	return false, nil
}

// cellCopy carries one branch-local value into a cell shared across an Or's
// branches after that branch succeeds.
type cellCopy struct {
	from, to *ValueCell
}

// orBranchCall wraps a single Or branch, copying its branch-local cells into
// the shared cells the parent scope and continuation read once the branch
// succeeds. Each branch is compiled under its own forked analyzer so writes
// in one branch can't leak into another during compilation (§4.5), which
// means a variable bound by every branch is still backed by a distinct cell
// per branch; this wrapper makes the group of cells look like one cell to
// everything outside the Or.
type orBranchCall struct {
	inner  Call
	copies []cellCopy
}

func (c *orBranchCall) Reset() { c.inner.Reset() }

func (c *orBranchCall) NextSolution() (bool, error) {
	ok, err := c.inner.NextSolution()
	if err != nil || !ok {
		return ok, err
	}
	for _, cp := range c.copies {
		cp.to.Bind(cp.from.Value())
	}
	return true, nil
}

// notCall succeeds exactly once iff inner has no solution, per §4.5.
type notCall struct {
	inner Call
	done  bool
}

func (c *notCall) Reset() { c.done = false }

func (c *notCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	c.inner.Reset()
	ok, err := c.inner.NextSolution()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// compareCall implements <, <=, >, >=, ==, != on two already-instantiated
// cells, per §4.5. Eq/Ne only need the equality capability; the ordering
// comparisons need the ordering capability too.
type compareCall struct {
	op        compareOp
	typ       reflect.Type
	lhs, rhs  *ValueCell
	done      bool
}

func (c *compareCall) Reset() { c.done = false }

func (c *compareCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	a, b := c.lhs.Value(), c.rhs.Value()
	if c.op == opEq || c.op == opNe {
		eq, err := equalValues(c.typ, a, b)
		if err != nil {
			return false, err
		}
		if c.op == opEq {
			return eq, nil
		}
		return !eq, nil
	}
	cmp, err := compareValues(c.typ, a, b)
	if err != nil {
		return false, err
	}
	switch c.op {
	case opLt:
		return cmp < 0, nil
	case opLe:
		return cmp <= 0, nil
	case opGt:
		return cmp > 0, nil
	case opGe:
		return cmp >= 0, nil
	default:
		return false, nil
	}
}

// inCall implements In(x, coll) in both modes of §4.5: test mode when x is
// already instantiated, generate mode when x is a fresh Write.
type inCall struct {
	xOp      MatchOperation
	collCell *ValueCell
	typ      reflect.Type
	idx      int
	tested   bool
}

func (c *inCall) Reset() {
	c.idx = 0
	c.tested = false
}

func (c *inCall) NextSolution() (bool, error) {
	coll := reflect.ValueOf(c.collCell.Value())
	if c.xOp.Op == OpWrite {
		if c.idx >= coll.Len() {
			return false, nil
		}
		v := coll.Index(c.idx).Interface()
		c.idx++
		c.xOp.Cell.Bind(v)
		return true, nil
	}
	if c.tested {
		return false, nil
	}
	c.tested = true
	xv := c.xOp.Cell.Value()
	for i := 0; i < coll.Len(); i++ {
		eq, err := equalValues(c.typ, xv, coll.Index(i).Interface())
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// probCall succeeds once with probability p, per §4.5, drawing from the
// Database's configured source of randomness (WithRNG).
type probCall struct {
	p    float64
	rng  randSource
	done bool
}

func (c *probCall) Reset() { c.done = false }

func (c *probCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	return c.rng.Float64() < c.p, nil
}

// randomElementCall binds elem to a uniformly random row of an arity-1
// table, per §4.5. Fails (rather than panics) against an empty table.
type randomElementCall struct {
	table *Table
	cell  *ValueCell
	rng   randSource
	done  bool
}

func (c *randomElementCall) Reset() { c.done = false }

func (c *randomElementCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	n := c.table.Length()
	if n == 0 {
		return false, nil
	}
	row := c.table.Row(c.rng.Intn(n))
	c.cell.Bind(row[0])
	return true, nil
}

// pickRandomlyCall binds out to a uniformly random one of a fixed set of
// already-instantiated value cells, per §4.5.
type pickRandomlyCall struct {
	outCell    *ValueCell
	valueCells []*ValueCell
	rng        randSource
	done       bool
}

func (c *pickRandomlyCall) Reset() { c.done = false }

func (c *pickRandomlyCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	if len(c.valueCells) == 0 {
		return false, nil
	}
	i := c.rng.Intn(len(c.valueCells))
	c.outCell.Bind(c.valueCells[i].Value())
	return true, nil
}

// evalCall computes a (possibly nested) functional expression via the
// closure analyzer.compileExpr built, then unifies it with out, per §4.5.
// out is ordinarily a Write cell from hoisting, but Eval also accepts an
// already-bound or Ignore out term.
type evalCall struct {
	outOp MatchOperation
	typ   reflect.Type
	fn    func() (any, error)
	done  bool
}

func (c *evalCall) Reset() { c.done = false }

func (c *evalCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	v, err := c.fn()
	if err != nil {
		return false, err
	}
	switch c.outOp.Op {
	case OpWrite:
		c.outOp.Cell.Bind(v)
		return true, nil
	case OpIgnore:
		return true, nil
	default:
		return equalValues(c.typ, c.outOp.Cell.Value(), v)
	}
}

func snapshotCells(cells []*ValueCell) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c.Value()
	}
	return out
}

// maximalCall drives inner to exhaustion tracking the solution with the
// largest (or, if minimize, smallest) utility cell value, per §4.5 and
// design note 9's resolution of the "gotOne seeds the first comparison"
// open question: the first solution is always kept, every later one only
// replaces it if its utility strictly improves on the running best.
type maximalCall struct {
	inner       Call
	resultCells []*ValueCell
	utilCell    *ValueCell
	minimize    bool
	done        bool
}

func (c *maximalCall) Reset() { c.done = false }

func (c *maximalCall) NextSolution() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	c.inner.Reset()
	gotOne := false
	var bestResult []any
	var bestUtility any
	for {
		ok, err := c.inner.NextSolution()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		cur := c.utilCell.Value()
		if !gotOne {
			gotOne = true
			bestUtility = cur
			bestResult = snapshotCells(c.resultCells)
			continue
		}
		cmp, err := compareValues(c.utilCell.Type, cur, bestUtility)
		if err != nil {
			return false, err
		}
		improves := cmp > 0
		if c.minimize {
			improves = cmp < 0
		}
		if improves {
			bestUtility = cur
			bestResult = snapshotCells(c.resultCells)
		}
	}
	if !gotOne {
		return false, nil
	}
	for i, cell := range c.resultCells {
		cell.Bind(bestResult[i])
	}
	c.utilCell.Bind(bestUtility)
	return true, nil
}
