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
	"sync"
	"sync/atomic"
)

// The teacher engine (kevinawalsh-datalog) tells variables and constants
// apart, and tells distinct variables apart from each other, by embedding a
// marker struct whose address is taken with reflect.ValueOf(p).Pointer().
// That sidesteps Go's lack of weak maps, but it is reflect-heavy and gives
// every variable/constant an identity tied to its allocation rather than to
// what it denotes. ted uses ordinary Go pointer identity instead -- a
// *Variable denotes "the same variable" exactly when it's the same pointer,
// which is simpler, and constants are interned (one *Constant per
// (type, value) pair) below, matching §3's "interned read-only cells".

// ValueCell is a named, mutable, typed slot holding the current value of a
// rule-local variable during backtracking, per §3. Constants get their own
// read-only cell, interned process-wide.
type ValueCell struct {
	id      uint64
	Name    string
	Type    reflect.Type
	value   any
	bound   bool
	isConst bool
}

var cellCounter uint64

func newCell(name string, t reflect.Type) *ValueCell {
	return &ValueCell{id: atomic.AddUint64(&cellCounter, 1), Name: name, Type: t}
}

// Bind sets the cell's current value, marking it bound. Called by a Call
// that owns a Write match operation on this cell.
func (c *ValueCell) Bind(v any) {
	if c.isConst {
		panic("ted: attempt to rebind a constant cell")
	}
	c.value = v
	c.bound = true
}

// Unbind clears the cell, matching the "NextSolution leaves cells in an
// unspecified state on false" contract by making that state explicit and
// inert rather than stale.
func (c *ValueCell) Unbind() {
	if c.isConst {
		return
	}
	c.value = nil
	c.bound = false
}

// Value returns the cell's current value. Callers must only do this after
// confirming the cell is bound (Constant cells are always bound).
func (c *ValueCell) Value() any { return c.value }

// Bound reports whether the cell currently holds a value.
func (c *ValueCell) Bound() bool { return c.bound }

func (c *ValueCell) String() string {
	if c.bound {
		return fmt.Sprintf("%v", c.value)
	}
	return "_" + c.Name
}

// Term represents an argument of a goal: a Variable, a Constant, a
// FunctionalExpression, or the wildcard returned by Ignore(). Terms are
// immutable ASTs built at rule-declaration time.
type Term interface {
	termType() reflect.Type
	isTerm()
}

// Variable represents a rule-local datalog variable, e.g. X, Y. Two
// Variable terms denote "the same" variable within a rule body exactly
// when they are the same pointer -- reuse the value returned by NewVar
// across every goal in the rule body that should share a binding.
type Variable struct {
	Name string
	typ  reflect.Type
}

// NewVar creates a fresh, uniquely-identified variable of static type T.
func NewVar[T any](name string) *Variable {
	var zero T
	return &Variable{Name: name, typ: reflect.TypeOf(zero)}
}

func (v *Variable) termType() reflect.Type { return v.typ }
func (v *Variable) isTerm()                {}
func (v *Variable) String() string         { return v.Name }

// ignoreTerm is the wildcard term: its position's value is never read and
// never written. A single sentinel suffices since it carries no state.
type ignoreTerm struct{}

func (ignoreTerm) termType() reflect.Type { return nil }
func (ignoreTerm) isTerm()                {}
func (ignoreTerm) String() string         { return "_" }

var theIgnoreTerm = ignoreTerm{}

// Ignore returns the wildcard term ("don't care"): it matches any value in
// a table goal's argument position without binding a cell for it.
func Ignore() Term { return theIgnoreTerm }

// Constant represents a concrete, already-known datalog value, e.g. 42 or
// "alice". Constants are interned: two Const(T) calls with equal type and
// (comparable) value return the identical *Constant, matching §3's "one
// per (type, value) pair".
type Constant struct {
	value any
	typ   reflect.Type
	cell  *ValueCell
}

func (c *Constant) termType() reflect.Type { return c.typ }
func (c *Constant) isTerm()                {}
func (c *Constant) Value() any             { return c.value }
func (c *Constant) String() string         { return fmt.Sprintf("%v", c.value) }

var (
	internMu    sync.Mutex
	internTable = map[reflect.Type]map[any]*Constant{}
)

// Const interns and returns a constant term of value v and static type T.
func Const[T comparable](v T) *Constant {
	t := reflect.TypeOf(v)
	internMu.Lock()
	defer internMu.Unlock()
	byValue, ok := internTable[t]
	if !ok {
		byValue = make(map[any]*Constant)
		internTable[t] = byValue
	}
	if c, ok := byValue[v]; ok {
		return c
	}
	cell := newCell(fmt.Sprintf("%v", v), t)
	cell.isConst = true
	cell.value = v
	cell.bound = true
	c := &Constant{value: v, typ: t, cell: cell}
	byValue[v] = c
	return c
}

// FunctionalExpression represents a host-supplied function applied to
// operand terms, e.g. Arithmetic[int]("+", X, Const(1)). Per §4.2, functional expressions
// appearing as a goal argument are hoisted into a preceding Eval goal
// before mode analysis runs; a FunctionalExpression is never itself
// classified by the analyzer.
type FunctionalExpression struct {
	Op       string
	Operands []Term
	typ      reflect.Type
	fn       func(args []any) (any, error)
}

func (f *FunctionalExpression) termType() reflect.Type { return f.typ }
func (f *FunctionalExpression) isTerm()                {}

// Fn builds a functional expression of static result type T, computed by
// fn from the (already reduced) operand values in order.
func Fn[T any](op string, fn func(args []any) (any, error), operands ...Term) *FunctionalExpression {
	var zero T
	return &FunctionalExpression{Op: op, Operands: operands, typ: reflect.TypeOf(zero), fn: fn}
}

// Arithmetic builds a functional expression backed by the registered
// arithmetic capability for T, e.g. Arithmetic[int]("+", X, Y) for X + Y.
func Arithmetic[T any](op string, a, b Term) *FunctionalExpression {
	var zero T
	t := reflect.TypeOf(zero)
	return Fn[T](op, func(args []any) (any, error) {
		c, err := mustCapability(t)
		if err != nil {
			return nil, err
		}
		if c.Arith.Add == nil {
			return nil, newError(ErrCapability, "type %s has no arithmetic capability", t)
		}
		var f func(a, b any) (any, error)
		switch op {
		case "+":
			f = c.Arith.Add
		case "-":
			f = c.Arith.Sub
		case "*":
			f = c.Arith.Mul
		case "/":
			f = c.Arith.Div
		case "%":
			f = c.Arith.Mod
		case "&":
			f = c.Arith.And
		case "|":
			f = c.Arith.Or
		case "^":
			f = c.Arith.Xor
		default:
			return nil, fmt.Errorf("ted: unknown arithmetic operator %q", op)
		}
		if f == nil {
			return nil, newError(ErrCapability, "type %s has no %q operator", t, op)
		}
		return f(args[0], args[1])
	}, a, b)
}
