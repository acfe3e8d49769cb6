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

// analyzer walks a rule body left-to-right, maintaining a variable->cell
// map and a set of variables already bound by prior goals, per §4.1. A
// child analyzer (fork) is used for subgoals whose bindings must not leak,
// e.g. inside Not or Maximal/Minimal: it inherits the cell map by copy, but
// dependencies discovered while compiling the child propagate up to the
// parent's rule.
type analyzer struct {
	rule   *Rule
	cells  map[*Variable]*ValueCell
	bound  map[*Variable]bool
	parent *analyzer
}

func newAnalyzer(r *Rule) *analyzer {
	return &analyzer{rule: r, cells: map[*Variable]*ValueCell{}, bound: map[*Variable]bool{}}
}

func (a *analyzer) fork() *analyzer {
	child := &analyzer{rule: a.rule, cells: map[*Variable]*ValueCell{}, bound: map[*Variable]bool{}, parent: a}
	for v, c := range a.cells {
		child.cells[v] = c
	}
	for v, b := range a.bound {
		child.bound[v] = b
	}
	return child
}

// cellFor returns the cell for variable v, creating and registering one on
// first use (this is how a Variable's first occurrence becomes a Write).
func (a *analyzer) cellFor(v *Variable) (*ValueCell, bool) {
	if c, ok := a.cells[v]; ok {
		return c, true
	}
	c := newCell(v.Name, v.typ)
	a.cells[v] = c
	a.rule.cells = append(a.rule.cells, c)
	return c, false
}

// classify implements §4.1's mode inference for a single term.
func (a *analyzer) classify(t Term) (Opcode, *ValueCell, error) {
	switch term := t.(type) {
	case *Constant:
		return OpConstant, term.cell, nil
	case ignoreTerm:
		return OpIgnore, nil, nil
	case *Variable:
		cell, existed := a.cellFor(term)
		if existed && a.bound[term] {
			return OpRead, cell, nil
		}
		a.bound[term] = true
		return OpWrite, cell, nil
	case *FunctionalExpression:
		return 0, nil, fmt.Errorf("ted: unhoisted functional expression reached the analyzer")
	default:
		return 0, nil, fmt.Errorf("ted: unsupported term %T", t)
	}
}

// requireInstantiated classifies t and fails with Instantiation unless the
// result is Read or Constant -- the shape every comparison, In's collection
// argument, and Eval's operands require (§4.1, §4.5, §9's open question on
// In).
func (a *analyzer) requireInstantiated(t Term) (*ValueCell, error) {
	op, cell, err := a.classify(t)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpRead, OpConstant:
		return cell, nil
	case OpWrite:
		return nil, newError(ErrInstantiation, "variable %v used before it is bound", t)
	default:
		return nil, newError(ErrInstantiation, "wildcard cannot be used where a value is required")
	}
}

// compileExpr compiles a (possibly nested) functional expression into a
// closure over the cells of its Variable/Constant leaves, recursing through
// nested FunctionalExpression operands directly rather than requiring them
// to be hoisted -- only expressions appearing as a direct goal argument get
// hoisted into a preceding Eval goal (§4.2); an expression's own operands
// are evaluated as one unit.
func (a *analyzer) compileExpr(expr *FunctionalExpression) (func() (any, error), error) {
	argFns := make([]func() (any, error), len(expr.Operands))
	for i, operand := range expr.Operands {
		switch t := operand.(type) {
		case *FunctionalExpression:
			f, err := a.compileExpr(t)
			if err != nil {
				return nil, err
			}
			argFns[i] = f
		default:
			cell, err := a.requireInstantiated(operand)
			if err != nil {
				return nil, err
			}
			argFns[i] = func() (any, error) { return cell.Value(), nil }
		}
	}
	fn := expr.fn
	return func() (any, error) {
		args := make([]any, len(argFns))
		for i, f := range argFns {
			v, err := f()
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn(args)
	}, nil
}
