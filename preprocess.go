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

import "fmt"

// expandBody runs §4.2's two preprocessing passes over a rule body before
// mode analysis: hoisting functional-expression arguments into preceding
// Eval goals, and inlining Definition calls by substituting actuals for
// formals and splicing the definition's body into place. Both passes are
// driven by a single recursive walk over the Goal tagged union (design
// note 9), since that is the one place a generic tree rewrite is needed.
func expandBody(goals []*Goal) ([]*Goal, error) {
	var out []*Goal
	for _, g := range goals {
		expanded, err := expandGoal(g)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func wrapExpanded(goals []*Goal) *Goal {
	if len(goals) == 1 {
		return goals[0]
	}
	return And(goals...)
}

func expandGoal(g *Goal) ([]*Goal, error) {
	switch g.kind {
	case goalDefCall:
		return inlineDefinition(g)
	case goalAnd:
		expanded, err := expandBody(g.sub)
		if err != nil {
			return nil, err
		}
		return []*Goal{And(expanded...)}, nil
	case goalOr:
		branches := make([]*Goal, len(g.sub))
		for i, b := range g.sub {
			expanded, err := expandGoal(b)
			if err != nil {
				return nil, err
			}
			branches[i] = wrapExpanded(expanded)
		}
		return []*Goal{Or(branches...)}, nil
	case goalNot:
		expanded, err := expandGoal(g.inner)
		if err != nil {
			return nil, err
		}
		return []*Goal{Not(wrapExpanded(expanded))}, nil
	case goalMaximal, goalMinimal:
		expanded, err := expandGoal(g.goal)
		if err != nil {
			return nil, err
		}
		inner := wrapExpanded(expanded)
		if g.kind == goalMaximal {
			return []*Goal{Maximal(g.resultArgs, g.utility, inner)}, nil
		}
		return []*Goal{Minimal(g.resultArgs, g.utility, inner)}, nil
	case goalPredicate:
		return hoistTerms(g.args, func(newArgs []Term) *Goal {
			cp := *g
			cp.args = newArgs
			return &cp
		})
	case goalCompare:
		return hoistTerms([]Term{g.lhs, g.rhs}, func(newArgs []Term) *Goal {
			cp := *g
			cp.lhs, cp.rhs = newArgs[0], newArgs[1]
			return &cp
		})
	case goalIn:
		return hoistTerms([]Term{g.x, g.coll}, func(newArgs []Term) *Goal {
			cp := *g
			cp.x, cp.coll = newArgs[0], newArgs[1]
			return &cp
		})
	case goalRandomElement:
		return hoistTerms([]Term{g.elem}, func(newArgs []Term) *Goal {
			cp := *g
			cp.elem = newArgs[0]
			return &cp
		})
	case goalPickRandomly:
		return hoistTerms(append([]Term{g.out}, g.values...), func(newArgs []Term) *Goal {
			cp := *g
			cp.out = newArgs[0]
			cp.values = newArgs[1:]
			return &cp
		})
	case goalEval, goalProb:
		// Eval's own expression is not itself hoisted (identity-match
		// primitive per §4.2); Prob has no term arguments.
		return []*Goal{g}, nil
	default:
		return nil, fmt.Errorf("ted: unknown goal kind %d", g.kind)
	}
}

// hoistTerms replaces any FunctionalExpression among terms with a fresh
// variable, prepending an Eval goal for it, then rebuilds the goal with
// rebuild(newTerms).
func hoistTerms(terms []Term, rebuild func([]Term) *Goal) ([]*Goal, error) {
	var pre []*Goal
	newTerms := make([]Term, len(terms))
	for i, t := range terms {
		if expr, ok := t.(*FunctionalExpression); ok {
			v := NewVar[any](fmt.Sprintf("$hoist%d", hoistCounter()))
			v.typ = expr.typ
			pre = append(pre, Eval(v, expr))
			newTerms[i] = v
		} else {
			newTerms[i] = t
		}
	}
	return append(pre, rebuild(newTerms)), nil
}

var hoistSeq uint64

func hoistCounter() uint64 {
	hoistSeq++
	return hoistSeq
}

// inlineDefinition substitutes g's actual arguments for the definition's
// formal parameters and splices its single clause's body into place,
// recursively inlining any definition calls the body itself contains.
// Definitions are non-recursive macros (§4.2), so this always terminates.
func inlineDefinition(g *Goal) ([]*Goal, error) {
	def := g.pred.definition
	if def == nil {
		return nil, fmt.Errorf("ted: predicate %s has no definition body", g.pred.Name)
	}
	if len(def.formals) != len(g.args) {
		return nil, fmt.Errorf("ted: definition %s arity mismatch", g.pred.Name)
	}
	subst := make(map[*Variable]Term, len(def.formals))
	for i, f := range def.formals {
		subst[f] = g.args[i]
	}
	substituted := make([]*Goal, len(def.body))
	for i, bg := range def.body {
		substituted[i] = substituteGoal(bg, subst)
	}
	return expandBody(substituted)
}

func substituteTerm(t Term, subst map[*Variable]Term) Term {
	if v, ok := t.(*Variable); ok {
		if repl, ok := subst[v]; ok {
			return repl
		}
	}
	return t
}

func substituteTerms(ts []Term, subst map[*Variable]Term) []Term {
	out := make([]Term, len(ts))
	for i, t := range ts {
		out[i] = substituteTerm(t, subst)
	}
	return out
}

// substituteGoal deep-copies g, replacing every formal-parameter Variable
// with its actual-argument Term according to subst.
func substituteGoal(g *Goal, subst map[*Variable]Term) *Goal {
	cp := *g
	switch g.kind {
	case goalPredicate, goalDefCall:
		cp.args = substituteTerms(g.args, subst)
	case goalAnd, goalOr:
		cp.sub = make([]*Goal, len(g.sub))
		for i, s := range g.sub {
			cp.sub[i] = substituteGoal(s, subst)
		}
	case goalNot:
		cp.inner = substituteGoal(g.inner, subst)
	case goalCompare:
		cp.lhs = substituteTerm(g.lhs, subst)
		cp.rhs = substituteTerm(g.rhs, subst)
	case goalIn:
		cp.x = substituteTerm(g.x, subst)
		cp.coll = substituteTerm(g.coll, subst)
	case goalRandomElement:
		cp.elem = substituteTerm(g.elem, subst)
	case goalPickRandomly:
		cp.out = substituteTerm(g.out, subst)
		cp.values = substituteTerms(g.values, subst)
	case goalEval:
		cp.out = substituteTerm(g.out, subst)
		cp.expr = substituteExpr(g.expr, subst)
	case goalMaximal, goalMinimal:
		cp.resultArgs = substituteTerms(g.resultArgs, subst)
		cp.utility = substituteTerm(g.utility, subst)
		cp.goal = substituteGoal(g.goal, subst)
	}
	return &cp
}

func substituteExpr(e *FunctionalExpression, subst map[*Variable]Term) *FunctionalExpression {
	cp := *e
	cp.Operands = make([]Term, len(e.Operands))
	for i, op := range e.Operands {
		if nested, ok := op.(*FunctionalExpression); ok {
			cp.Operands[i] = substituteExpr(nested, subst)
		} else {
			cp.Operands[i] = substituteTerm(op, subst)
		}
	}
	return &cp
}
