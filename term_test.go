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
	"testing"
)

func TestConstInterning(t *testing.T) {
	a1 := Const("alice")
	a2 := Const("alice")
	if a1 != a2 {
		t.Fatal("Const should intern equal (type, value) pairs to the same pointer")
	}
	b := Const("bob")
	if a1 == b {
		t.Fatal("Const interned distinct values to the same pointer")
	}
	n := Const(42)
	if n.Value() != 42 {
		t.Fatalf("wrong constant value: %v", n.Value())
	}
}

func TestVariableIdentity(t *testing.T) {
	x1 := NewVar[int]("X")
	x2 := NewVar[int]("X")
	if x1 == x2 {
		t.Fatal("NewVar should create a fresh variable on every call, even with the same name")
	}
}

func TestValueCellBindUnbind(t *testing.T) {
	c := newCell("X", reflect.TypeOf(0))
	if c.Bound() {
		t.Fatal("fresh cell should not be bound")
	}
	c.Bind(7)
	if !c.Bound() || c.Value() != 7 {
		t.Fatal("Bind did not take effect")
	}
	c.Unbind()
	if c.Bound() {
		t.Fatal("Unbind did not clear bound state")
	}
}

func TestArithmeticExpression(t *testing.T) {
	x := NewVar[int]("X")
	cell := newCell("X", x.typ)
	cell.Bind(3)
	expr := Arithmetic[int]("+", x, Const(4))
	fn, err := (&analyzer{rule: &Rule{deps: map[*Predicate]bool{}}, cells: map[*Variable]*ValueCell{x: cell}, bound: map[*Variable]bool{x: true}}).compileExpr(expr)
	if err != nil {
		t.Fatal(err)
	}
	v, err := fn()
	if err != nil {
		t.Fatal(err)
	}
	if v.(int) != 7 {
		t.Fatalf("3+4 should be 7, got %v", v)
	}
}
