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

import "testing"

// S1: one-hop ancestry. Recursion is out of scope (§1's non-goals), so
// "ancestor" here is a single join rather than a transitive closure.
func TestScenarioOneHopAncestry(t *testing.T) {
	db := NewDatabase()
	parent, err := db.NewTable("parent", false, Column[string]("p"), Column[string]("c"))
	if err != nil {
		t.Fatal(err)
	}
	grandparent, err := db.NewTable("grandparent", false, Column[string]("gp"), Column[string]("gc"))
	if err != nil {
		t.Fatal(err)
	}

	x, y, z := NewVar[string]("X"), NewVar[string]("Y"), NewVar[string]("Z")
	if err := grandparent.Goal(x, z).If(And(parent.Goal(x, y), parent.Goal(y, z))); err != nil {
		t.Fatal(err)
	}

	if _, err := parent.AddRow("alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := parent.AddRow("bob", "carol"); err != nil {
		t.Fatal(err)
	}
	if _, err := parent.AddRow("carol", "dave"); err != nil {
		t.Fatal(err)
	}

	if err := grandparent.EnsureUpToDate(); err != nil {
		t.Fatal(err)
	}
	if grandparent.Length() != 2 {
		t.Fatalf("expected 2 grandparent rows, got %d", grandparent.Length())
	}
	seen := map[[2]string]bool{}
	for i := 0; i < grandparent.Length(); i++ {
		row := grandparent.Row(i)
		seen[[2]string{row[0].(string), row[1].(string)}] = true
	}
	if !seen[[2]string{"alice", "carol"}] || !seen[[2]string{"bob", "dave"}] {
		t.Fatalf("unexpected grandparent rows: %v", seen)
	}
}

// S2: negation. single(X) holds for every person not present in married.
func TestScenarioNegation(t *testing.T) {
	db := NewDatabase()
	person, err := db.NewTable("person", false, Column[string]("name"))
	if err != nil {
		t.Fatal(err)
	}
	married, err := db.NewTable("married", false, Column[string]("a"), Column[string]("b"))
	if err != nil {
		t.Fatal(err)
	}
	single, err := db.NewTable("single", false, Column[string]("name"))
	if err != nil {
		t.Fatal(err)
	}

	x := NewVar[string]("X")
	if err := single.Goal(x).If(And(person.Goal(x), Not(married.Goal(x, Ignore())))); err != nil {
		t.Fatal(err)
	}

	person.AddRow("alice")
	person.AddRow("bob")
	married.AddRow("bob", "carol")

	if err := single.EnsureUpToDate(); err != nil {
		t.Fatal(err)
	}
	if single.Length() != 1 || single.Row(0)[0] != "alice" {
		t.Fatalf("expected only alice to be single, got length %d", single.Length())
	}
}

// S3: comparison. adult(X) holds for every person whose age is >= 18.
func TestScenarioComparison(t *testing.T) {
	db := NewDatabase()
	person, err := db.NewTable("person", false, Column[string]("name"), Column[int]("age"))
	if err != nil {
		t.Fatal(err)
	}
	adult, err := db.NewTable("adult", false, Column[string]("name"))
	if err != nil {
		t.Fatal(err)
	}

	x, age := NewVar[string]("X"), NewVar[int]("Age")
	if err := adult.Goal(x).If(And(person.Goal(x, age), Ge(age, Const(18)))); err != nil {
		t.Fatal(err)
	}

	person.AddRow("alice", 30)
	person.AddRow("bob", 10)
	person.AddRow("carol", 18)

	if err := adult.EnsureUpToDate(); err != nil {
		t.Fatal(err)
	}
	if adult.Length() != 2 {
		t.Fatalf("expected 2 adults, got %d", adult.Length())
	}
}

// S4: a duplicate key is rejected and leaves the table unchanged.
func TestScenarioKeyDuplicate(t *testing.T) {
	db := NewDatabase()
	kv, err := db.NewTable("kv", false, Column[string]("k").AsKey(), Column[int]("v"))
	if err != nil {
		t.Fatal(err)
	}
	ok, err := kv.AddRow("a", 1)
	if err != nil || !ok {
		t.Fatalf("first insert should succeed: %v %v", ok, err)
	}
	ok, err = kv.AddRow("a", 2)
	if ok {
		t.Fatal("duplicate key insert should fail")
	}
	e, isErr := err.(*Error)
	if !isErr || e.Kind != ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if kv.Length() != 1 {
		t.Fatalf("table should be unchanged, got length %d", kv.Length())
	}
}

// S5: Maximal picks the row with the largest utility value.
func TestScenarioMaximal(t *testing.T) {
	db := NewDatabase()
	person, err := db.NewTable("person", false, Column[string]("name"), Column[int]("age"))
	if err != nil {
		t.Fatal(err)
	}
	oldest, err := db.NewTable("oldest", false, Column[string]("name"), Column[int]("age"))
	if err != nil {
		t.Fatal(err)
	}

	x, age := NewVar[string]("X"), NewVar[int]("Age")
	if err := oldest.Goal(x, age).If(Maximal([]Term{x}, age, person.Goal(x, age))); err != nil {
		t.Fatal(err)
	}

	person.AddRow("alice", 30)
	person.AddRow("bob", 45)
	person.AddRow("carol", 20)

	if err := oldest.EnsureUpToDate(); err != nil {
		t.Fatal(err)
	}
	if oldest.Length() != 1 {
		t.Fatalf("expected exactly one oldest row, got %d", oldest.Length())
	}
	row := oldest.Row(0)
	if row[0] != "bob" || row[1] != 45 {
		t.Fatalf("expected (bob, 45), got %v", row)
	}
}

// S6: a Unique table silently drops a whole-tuple duplicate insert.
func TestScenarioUniqueDedup(t *testing.T) {
	db := NewDatabase()
	seen, err := db.NewTable("seen", true, Column[string]("a"), Column[int]("b"))
	if err != nil {
		t.Fatal(err)
	}
	ok, err := seen.AddRow("x", 1)
	if err != nil || !ok {
		t.Fatalf("first insert should succeed: %v %v", ok, err)
	}
	ok, err = seen.AddRow("x", 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("duplicate tuple should be silently dropped on a Unique table")
	}
	if seen.Length() != 1 {
		t.Fatalf("expected 1 row after duplicate drop, got %d", seen.Length())
	}
}

// ModeConflict: AddRow after rules are registered, and If after rows exist.
func TestModeConflict(t *testing.T) {
	db := NewDatabase()
	ruled, err := db.NewTable("ruled", false, Column[int]("a"))
	if err != nil {
		t.Fatal(err)
	}
	x := NewVar[int]("X")
	src, err := db.NewTable("src", false, Column[int]("a"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ruled.Goal(x).If(src.Goal(x)); err != nil {
		t.Fatal(err)
	}
	_, err = ruled.AddRow(1)
	if err == nil {
		t.Fatal("AddRow on a ruled predicate should be a ModeConflict")
	}
	if e, ok := err.(*Error); !ok || e.Kind != ErrModeConflict {
		t.Fatalf("expected ErrModeConflict, got %v", err)
	}

	filled, err := db.NewTable("filled", false, Column[int]("a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := filled.AddRow(1); err != nil {
		t.Fatal(err)
	}
	y := NewVar[int]("Y")
	another, err := db.NewTable("another", false, Column[int]("a"))
	if err != nil {
		t.Fatal(err)
	}
	err = filled.Goal(y).If(another.Goal(y))
	if err == nil {
		t.Fatal("If on a predicate that already has rows should be a ModeConflict")
	}
}

// Cycle detection at registration time.
func TestCycleDetection(t *testing.T) {
	db := NewDatabase()
	p, err := db.NewTable("p", false, Column[int]("a"))
	if err != nil {
		t.Fatal(err)
	}
	q, err := db.NewTable("q", false, Column[int]("a"))
	if err != nil {
		t.Fatal(err)
	}
	x := NewVar[int]("X")
	if err := p.Goal(x).If(q.Goal(x)); err != nil {
		t.Fatal(err)
	}
	err = q.Goal(x).If(p.Goal(x))
	if err == nil {
		t.Fatal("expected a Cycle error registering q :- p when p :- q already exists")
	}
	if e, ok := err.(*Error); !ok || e.Kind != ErrCycle {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}
