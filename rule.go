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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rule is one compiled clause of an intensional table predicate: a head
// pattern and a compiled body Call, immutable once built, per §3.
type Rule struct {
	id   uuid.UUID
	db   *Database
	head *Goal

	headCells []*ValueCell // one per head argument, in order
	top       Call         // the compiled body, wrapped in a single andCall
	cells     []*ValueCell // every cell this rule allocated, for diagnostics

	deps map[*Predicate]bool // table predicates this rule's body reads
}

// If registers a rule deriving head whenever the conjunction of body
// succeeds. head's predicate must not already have had AddRow called on it
// (that would be a ModeConflict, §6). Definition calls in body are inlined
// and functional-expression arguments are hoisted before mode analysis, per
// §4.2.
func (head *Goal) If(body ...*Goal) error {
	return registerRule(head, body)
}

// Fact registers head as a fact: a rule with an empty body, always true.
// head's arguments are ordinarily Constants.
func (head *Goal) Fact() error {
	return registerRule(head, nil)
}

func registerRule(head *Goal, bodyGoals []*Goal) error {
	if head.kind != goalPredicate {
		return fmt.Errorf("ted: rule head must be a table predicate call")
	}
	pred := head.pred
	if pred.Kind != TableKind {
		return fmt.Errorf("ted: rule head predicate %s is not a table predicate", pred.Name)
	}
	if pred.filled {
		return newError(ErrModeConflict, "predicate %s already has rows added directly; cannot add rules", pred.Name)
	}

	expanded, err := expandBody(bodyGoals)
	if err != nil {
		return err
	}

	r := &Rule{id: uuid.New(), db: pred.db, head: head, deps: map[*Predicate]bool{}}
	a := newAnalyzer(r)

	var errs multiError
	calls := make([]Call, 0, len(expanded))
	for i, g := range expanded {
		call, err := compileGoal(a, g)
		if err != nil {
			errs.add(fmt.Errorf("goal #%d: %w", i, err))
			continue
		}
		calls = append(calls, call)
	}
	if err := errs.errorOrNil(); err != nil {
		if pred.db.logger != nil {
			pred.db.logger.Error("rule compilation failed", zap.String("predicate", pred.Name), zap.String("rule_id", r.id.String()), zap.Error(err))
		}
		return err
	}

	headCells := make([]*ValueCell, len(head.args))
	for i, arg := range head.args {
		cell, err := a.requireInstantiated(arg)
		if err != nil {
			return wrapError(ErrInstantiation, err, "predicate %s: head argument %d is not bound by the rule body", pred.Name, i)
		}
		headCells[i] = cell
	}

	r.headCells = headCells
	r.top = newAndCall(calls)
	for _, c := range a.cells {
		r.cells = append(r.cells, c)
	}

	for dep := range r.deps {
		pred.db.addDependencyEdge(pred, dep)
	}
	if cyclic, cycle := pred.db.findCycle(); cyclic {
		for dep := range r.deps {
			pred.db.removeDependencyEdge(pred, dep)
		}
		return newError(ErrCycle, "predicate dependency graph has a cycle: %s", cycle)
	}

	pred.rules = append(pred.rules, r)
	pred.ruled = true
	pred.db.invalidateDependents(pred)
	pred.upToDate = false
	return nil
}

// addAllSolutions drives r's compiled body to exhaustion, writing one row
// into the head table per joint solution (§4.6's `AddAllSolutions`).
func (r *Rule) addAllSolutions() error {
	ruleIndex := 0
	for i, pr := range r.head.pred.rules {
		if pr == r {
			ruleIndex = i
		}
	}
	callIndex := func() int {
		if ac, ok := r.top.(*andCall); ok && ac.i >= 0 {
			return ac.i
		}
		return 0
	}
	r.top.Reset()
	for {
		ok, err := r.top.NextSolution()
		if err != nil {
			return newRuleExecutionError(r.id, r.head.pred.Name, ruleIndex, callIndex(), cellSnapshotMap(r.cells), err)
		}
		if !ok {
			return nil
		}
		row := make(Row, len(r.headCells))
		for i, c := range r.headCells {
			row[i] = c.Value()
		}
		if _, err := r.head.pred.table.addRow(row); err != nil {
			if isDuplicateKey(err) {
				return err
			}
			return newRuleExecutionError(r.id, r.head.pred.Name, ruleIndex, callIndex(), cellSnapshotMap(r.cells), err)
		}
	}
}

func cellSnapshotMap(cells []*ValueCell) map[string]any {
	m := make(map[string]any, len(cells))
	for _, c := range cells {
		if c.Bound() {
			m[c.Name] = c.Value()
		}
	}
	return m
}

func isDuplicateKey(err error) bool {
	for err != nil {
		if te, ok := err.(*Error); ok && te.Kind == ErrDuplicateKey {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// compileGoal compiles one (already-expanded) goal into a Call, dispatching
// on its kind and tracking the table predicates it reads so the dependency
// graph (§3) stays accurate.
func compileGoal(a *analyzer, g *Goal) (Call, error) {
	switch g.kind {
	case goalPredicate:
		a.rule.deps[g.pred] = true
		return compileTableGoal(a, g)

	case goalDefCall:
		return nil, fmt.Errorf("ted: definition call reached the compiler unexpanded")

	case goalAnd:
		calls := make([]Call, len(g.sub))
		for i, sub := range g.sub {
			c, err := compileGoal(a, sub)
			if err != nil {
				return nil, err
			}
			calls[i] = c
		}
		return newAndCall(calls), nil

	case goalOr:
		return compileOr(a, g)

	case goalNot:
		child := a.fork()
		inner, err := compileGoal(child, g.inner)
		if err != nil {
			return nil, err
		}
		return &notCall{inner: inner}, nil

	case goalCompare:
		lhsCell, err := a.requireInstantiated(g.lhs)
		if err != nil {
			return nil, err
		}
		rhsCell, err := a.requireInstantiated(g.rhs)
		if err != nil {
			return nil, err
		}
		return &compareCall{op: g.op, typ: g.lhs.termType(), lhs: lhsCell, rhs: rhsCell}, nil

	case goalIn:
		collCell, err := a.requireInstantiated(g.coll)
		if err != nil {
			return nil, err
		}
		op, cell, err := a.classify(g.x)
		if err != nil {
			return nil, err
		}
		return &inCall{xOp: MatchOperation{Op: op, Cell: cell}, collCell: collCell, typ: g.x.termType()}, nil

	case goalProb:
		return &probCall{p: g.p, rng: a.rule.db.rng}, nil

	case goalRandomElement:
		if len(g.table.Columns) != 1 {
			return nil, fmt.Errorf("ted: RandomElement requires an arity-1 table, %s has arity %d", g.table.Name, len(g.table.Columns))
		}
		a.rule.deps[g.table] = true
		_, cell, err := a.classify(g.elem)
		if err != nil {
			return nil, err
		}
		return &randomElementCall{table: g.table.table, cell: cell, rng: a.rule.db.rng}, nil

	case goalPickRandomly:
		cells := make([]*ValueCell, len(g.values))
		for i, v := range g.values {
			c, err := a.requireInstantiated(v)
			if err != nil {
				return nil, err
			}
			cells[i] = c
		}
		_, outCell, err := a.classify(g.out)
		if err != nil {
			return nil, err
		}
		return &pickRandomlyCall{outCell: outCell, valueCells: cells, rng: a.rule.db.rng}, nil

	case goalEval:
		fn, err := a.compileExpr(g.expr)
		if err != nil {
			return nil, err
		}
		op, cell, err := a.classify(g.out)
		if err != nil {
			return nil, err
		}
		return &evalCall{outOp: MatchOperation{Op: op, Cell: cell}, typ: g.expr.typ, fn: fn}, nil

	case goalMaximal, goalMinimal:
		return compileAggregate(a, g)

	default:
		return nil, fmt.Errorf("ted: unknown goal kind %d", g.kind)
	}
}

// compileOr compiles each branch under its own forked analyzer so that a
// Write in one branch does not leak into another, then intersects the sets
// of newly-bound variables: a variable counts as bound after Or only if
// every branch bound it, per §4.5. Each fork allocates its own ValueCell per
// variable (§4.1: "child inherits the cell map by copy"), so a variable
// common to every branch ends up with one distinct cell per branch -- the
// continuation and head must still see a single cell for it, so every
// branch's Call is wrapped to copy its branch-local cell into one shared
// cell (allocated here, in the parent scope) on success.
func compileOr(a *analyzer, g *Goal) (Call, error) {
	if len(g.sub) == 0 {
		return newOrCall(nil), nil
	}
	before := make(map[*Variable]bool, len(a.bound))
	for v := range a.bound {
		before[v] = true
	}

	calls := make([]Call, len(g.sub))
	newlyBound := make([]map[*Variable]bool, len(g.sub))
	branchCells := make([]map[*Variable]*ValueCell, len(g.sub))
	for i, sub := range g.sub {
		child := a.fork()
		c, err := compileGoal(child, sub)
		if err != nil {
			return nil, err
		}
		calls[i] = c
		nb := map[*Variable]bool{}
		cells := map[*Variable]*ValueCell{}
		for v, bound := range child.bound {
			if bound && !before[v] {
				nb[v] = true
				cells[v] = child.cells[v]
			}
		}
		newlyBound[i] = nb
		branchCells[i] = cells
	}

	common := newlyBound[0]
	for _, nb := range newlyBound[1:] {
		for v := range common {
			if !nb[v] {
				delete(common, v)
			}
		}
	}

	shared := make(map[*Variable]*ValueCell, len(common))
	for v := range common {
		cell, _ := a.cellFor(v)
		shared[v] = cell
		a.bound[v] = true
	}
	for i, c := range calls {
		var copies []cellCopy
		for v, sharedCell := range shared {
			if branchCell := branchCells[i][v]; branchCell != nil && branchCell != sharedCell {
				copies = append(copies, cellCopy{from: branchCell, to: sharedCell})
			}
		}
		if len(copies) > 0 {
			calls[i] = &orBranchCall{inner: c, copies: copies}
		}
	}

	return newOrCall(calls), nil
}

// compileAggregate compiles Maximal/Minimal, per §4.5 and §9's "gotOne"
// resolution: resultArgs and utility must be unbound on entry (the goal
// itself binds them each time it succeeds), and the inner goal is compiled
// in a forked scope so its other bindings don't leak outside the aggregate.
func compileAggregate(a *analyzer, g *Goal) (Call, error) {
	child := a.fork()
	resultVars := make([]*Variable, len(g.resultArgs))
	for i, t := range g.resultArgs {
		v, ok := t.(*Variable)
		if !ok {
			return nil, fmt.Errorf("ted: Maximal/Minimal result argument %d must be a variable", i)
		}
		if child.bound[v] {
			return nil, newError(ErrInstantiation, "Maximal/Minimal result argument %s must be unbound on entry", v.Name)
		}
		resultVars[i] = v
	}
	uv, ok := g.utility.(*Variable)
	if !ok {
		return nil, fmt.Errorf("ted: Maximal/Minimal utility argument must be a variable")
	}
	if child.bound[uv] {
		return nil, newError(ErrInstantiation, "Maximal/Minimal utility argument %s must be unbound on entry", uv.Name)
	}

	// The inner goal is compiled without pre-seeding result/utility as
	// bound, so goal's own first occurrence of each one classifies as
	// Write -- exactly as if the aggregate were absent. Only afterward do
	// we read back the cells goal created, and publish them as bound in
	// the parent scope (resultArgs/utility are genuinely produced once per
	// Maximal/Minimal success, per §4.5).
	inner, err := compileGoal(child, g.goal)
	if err != nil {
		return nil, err
	}

	resultCells := make([]*ValueCell, len(resultVars))
	for i, v := range resultVars {
		cell, existed := child.cellFor(v)
		if !existed {
			return nil, newError(ErrInstantiation, "Maximal/Minimal result argument %s is never bound by goal", v.Name)
		}
		resultCells[i] = cell
	}
	utilCell, existed := child.cellFor(uv)
	if !existed {
		return nil, newError(ErrInstantiation, "Maximal/Minimal utility argument %s is never bound by goal", uv.Name)
	}

	for i, v := range resultVars {
		a.bound[v] = true
		a.cells[v] = resultCells[i]
	}
	a.bound[uv] = true
	a.cells[uv] = utilCell

	return &maximalCall{inner: inner, resultCells: resultCells, utilCell: utilCell, minimize: g.kind == goalMinimal}, nil
}
