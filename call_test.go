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

// These exercise the four §4.3 access-path Call types directly against a
// bare *Table, without building a full Rule, plus runConjunction as a
// minimal driver over them.

func newProbeTable() *Table {
	cols := []ColumnSpec{Column[string]("name").AsKey(), Column[int]("age").AsIndexed()}
	tb := newTable("people", false, cols, 4, nil)
	tb.addRow(Row{"alice", 30})
	tb.addRow(Row{"bob", 30})
	tb.addRow(Row{"carol", 25})
	return tb
}

func TestFullScanCallVisitsEveryRow(t *testing.T) {
	tb := newProbeTable()
	nameCell := newCell("X", tb.columns[0].Type)
	ops := []MatchOperation{{Op: OpWrite, Cell: nameCell}, {Op: OpIgnore}}
	c := &fullScanCall{table: tb, ops: ops}
	c.Reset()

	var names []string
	for {
		ok, err := c.NextSolution()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		names = append(names, nameCell.Value().(string))
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 rows from a full scan, got %v", names)
	}
}

func TestKeyIndexProbeCallSucceedsAtMostOnce(t *testing.T) {
	tb := newProbeTable()
	ageCell := newCell("Age", tb.columns[1].Type)
	ops := []MatchOperation{{Op: OpConstant, Cell: constCellFor("alice")}, {Op: OpWrite, Cell: ageCell}}
	c := &keyIndexProbeCall{table: tb, column: 0, ops: ops}
	c.Reset()

	ok, err := c.NextSolution()
	if err != nil || !ok {
		t.Fatalf("expected a match for alice, got %v %v", ok, err)
	}
	if ageCell.Value() != 30 {
		t.Fatalf("expected age 30, got %v", ageCell.Value())
	}
	ok, err = c.NextSolution()
	if err != nil || ok {
		t.Fatalf("key index probe should yield at most one solution, got %v %v", ok, err)
	}
}

func TestKeyIndexProbeCallMissReturnsFalse(t *testing.T) {
	tb := newProbeTable()
	ageCell := newCell("Age", tb.columns[1].Type)
	ops := []MatchOperation{{Op: OpConstant, Cell: constCellFor("nobody")}, {Op: OpWrite, Cell: ageCell}}
	c := &keyIndexProbeCall{table: tb, column: 0, ops: ops}
	c.Reset()
	ok, err := c.NextSolution()
	if err != nil || ok {
		t.Fatalf("expected no match for an absent key, got %v %v", ok, err)
	}
}

func TestGeneralIndexScanCallWalksChain(t *testing.T) {
	tb := newProbeTable()
	nameCell := newCell("X", tb.columns[0].Type)
	ops := []MatchOperation{{Op: OpWrite, Cell: nameCell}, {Op: OpConstant, Cell: constCellFor(30)}}
	c := &generalIndexScanCall{table: tb, column: 1, ops: ops}
	c.Reset()

	var names []string
	for {
		ok, err := c.NextSolution()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		names = append(names, nameCell.Value().(string))
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 rows with age 30, got %v", names)
	}
}

func TestRowSetProbeCallOnUniqueTable(t *testing.T) {
	tb := newTable("seen", true, []ColumnSpec{Column[string]("a"), Column[int]("b")}, 4, nil)
	tb.addRow(Row{"x", 1})

	ops := []MatchOperation{{Op: OpConstant, Cell: constCellFor("x")}, {Op: OpConstant, Cell: constCellFor(1)}}
	c := &rowSetProbeCall{table: tb, ops: ops}
	c.Reset()
	ok, err := c.NextSolution()
	if err != nil || !ok {
		t.Fatalf("expected the probe to find the inserted tuple, got %v %v", ok, err)
	}
	ok, err = c.NextSolution()
	if err != nil || ok {
		t.Fatal("row-set probe should succeed at most once per Reset")
	}
}

func TestRunConjunctionDrivesJoin(t *testing.T) {
	tb := newProbeTable()
	nameCell := newCell("X", tb.columns[0].Type)
	ageOutCell := newCell("Age", tb.columns[1].Type)
	scan := &fullScanCall{table: tb, ops: []MatchOperation{{Op: OpWrite, Cell: nameCell}, {Op: OpWrite, Cell: ageOutCell}}}

	filterAge := newCell("Age2", tb.columns[1].Type)
	filterAge.Bind(30)
	cmp := &compareCall{op: opEq, typ: tb.columns[1].Type, lhs: ageOutCell, rhs: filterAge}

	var got []string
	err := runConjunction([]Call{scan, cmp}, func() error {
		got = append(got, nameCell.Value().(string))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 joined solutions with age 30, got %v", got)
	}
}

// constCellFor mirrors how Const() wires a term's interned cell, without
// going through the analyzer -- convenient for testing Call types in
// isolation from a full Rule.
func constCellFor(v any) *ValueCell {
	switch x := v.(type) {
	case string:
		return Const(x).cell
	case int:
		return Const(x).cell
	default:
		panic("constCellFor: unsupported type")
	}
}
