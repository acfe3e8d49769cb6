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

// Design note 9 asks for tagged variants over method-table polymorphism for
// term/goal/call kinds, so that a rule body can be walked generically (for
// hoisting functional expressions and inlining definitions) with a single
// switch rather than a family of small interfaces. Goal is that tagged
// union: every kind of syntactic call site -- a table predicate call, a
// primitive, or a definition call -- is one of these, distinguished by
// kind.
type goalKind int

const (
	goalPredicate goalKind = iota
	goalAnd
	goalOr
	goalNot
	goalCompare
	goalIn
	goalProb
	goalRandomElement
	goalPickRandomly
	goalEval
	goalMaximal
	goalMinimal
	goalDefCall
)

type compareOp int

const (
	opLt compareOp = iota
	opLe
	opGt
	opGe
	opEq
	opNe
)

// Goal is a syntactic call of a predicate or primitive with term arguments;
// it is compiled into a Call by the analyzer. Build one with a Predicate's
// Goal method or with the package-level primitive constructors (And, Or,
// Not, Lt, Eq, In, Prob, ...).
type Goal struct {
	kind goalKind

	// goalPredicate / goalDefCall
	pred *Predicate
	args []Term

	// goalAnd / goalOr
	sub []*Goal

	// goalNot
	inner *Goal

	// goalCompare
	op       compareOp
	lhs, rhs Term

	// goalIn
	x, coll Term

	// goalProb
	p float64

	// goalRandomElement
	table *Predicate
	elem  Term

	// goalPickRandomly
	out    Term
	values []Term

	// goalEval
	expr *FunctionalExpression

	// goalMaximal / goalMinimal
	resultArgs []Term
	utility    Term
	goal       *Goal
}

// Goal builds a call site against predicate p. The number of args must
// equal p's arity.
func (p *Predicate) Goal(args ...Term) *Goal {
	if len(args) != len(p.Columns) {
		panic("ted: arity mismatch building goal")
	}
	kind := goalPredicate
	if p.Kind == DefinitionKind {
		kind = goalDefCall
	}
	return &Goal{kind: kind, pred: p, args: args}
}

// And returns the conjunction of goals, flattening nested Ands at
// construction per §4.5.
func And(goals ...*Goal) *Goal {
	var flat []*Goal
	for _, g := range goals {
		if g.kind == goalAnd {
			flat = append(flat, g.sub...)
		} else {
			flat = append(flat, g)
		}
	}
	return &Goal{kind: goalAnd, sub: flat}
}

// Or returns the disjunction of goals: each branch has its own local
// binding scope; a variable counts as bound after Or only if every branch
// binds it.
func Or(goals ...*Goal) *Goal {
	return &Goal{kind: goalOr, sub: goals}
}

// Not succeeds exactly once if g has no solution. Every variable g uses
// that is also used outside it must already be bound.
func Not(g *Goal) *Goal {
	return &Goal{kind: goalNot, inner: g}
}

func compareGoal(op compareOp, lhs, rhs Term) *Goal {
	return &Goal{kind: goalCompare, op: op, lhs: lhs, rhs: rhs}
}

// Lt, Le, Gt, Ge are the ordering comparison primitives. Eq and Ne are
// value-equality tests (distinct from unification: both sides must already
// be instantiated).
func Lt(lhs, rhs Term) *Goal { return compareGoal(opLt, lhs, rhs) }
func Le(lhs, rhs Term) *Goal { return compareGoal(opLe, lhs, rhs) }
func Gt(lhs, rhs Term) *Goal { return compareGoal(opGt, lhs, rhs) }
func Ge(lhs, rhs Term) *Goal { return compareGoal(opGe, lhs, rhs) }
func Eq(lhs, rhs Term) *Goal { return compareGoal(opEq, lhs, rhs) }
func Ne(lhs, rhs Term) *Goal { return compareGoal(opNe, lhs, rhs) }

// In tests membership (x bound) or enumerates (x unbound) a collection
// term. coll must always be instantiated.
func In(x, coll Term) *Goal {
	return &Goal{kind: goalIn, x: x, coll: coll}
}

// Prob succeeds once with probability p.
func Prob(p float64) *Goal {
	return &Goal{kind: goalProb, p: p}
}

// RandomElement binds x to a uniformly random row of table, which must
// have arity 1 and be non-empty.
func RandomElement(table *Predicate, x Term) *Goal {
	return &Goal{kind: goalRandomElement, table: table, elem: x}
}

// PickRandomly binds x to a uniformly random element of a constant array.
func PickRandomly(x Term, values ...Term) *Goal {
	return &Goal{kind: goalPickRandomly, out: x, values: values}
}

// Eval computes a functional expression and unifies the result with v.
// Hoisting (§4.2) generates these automatically; host code rarely needs to
// build one directly, but may.
func Eval(v Term, expr *FunctionalExpression) *Goal {
	return &Goal{kind: goalEval, out: v, expr: expr}
}

// Maximal drives goal to exhaustion, tracking the solution with the
// largest utility cell value. resultArgs and utility must be unbound
// Variables on entry; they are bound by goal and must appear among its own
// terms so that each of goal's solutions sets them.
func Maximal(resultArgs []Term, utility Term, goal *Goal) *Goal {
	return &Goal{kind: goalMaximal, resultArgs: resultArgs, utility: utility, goal: goal}
}

// Minimal is Maximal with the comparison direction reversed.
func Minimal(resultArgs []Term, utility Term, goal *Goal) *Goal {
	return &Goal{kind: goalMinimal, resultArgs: resultArgs, utility: utility, goal: goal}
}
