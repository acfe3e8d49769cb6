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
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMultiErrorAccumulatesIndependentFailures(t *testing.T) {
	var errs multiError
	if err := errs.errorOrNil(); err != nil {
		t.Fatalf("expected nil from an empty multiError, got %v", err)
	}
	errs.add(newError(ErrInstantiation, "goal #0 bad"))
	errs.add(nil)
	errs.add(newError(ErrInstantiation, "goal #2 bad"))

	err := errs.errorOrNil()
	if err == nil {
		t.Fatal("expected a non-nil combined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "goal #0 bad") || !strings.Contains(msg, "goal #2 bad") {
		t.Fatalf("expected both failures in combined message, got %q", msg)
	}
}

func TestRuleExecutionErrorWrapsCause(t *testing.T) {
	cause := errors.New("host function panicked")
	id := uuid.New()
	re := newRuleExecutionError(id, "oldest", 0, 2, map[string]any{"X": "bob"}, cause)

	if re.Kind != ErrRuleExecution {
		t.Fatalf("expected ErrRuleExecution, got %v", re.Kind)
	}
	if re.RuleID != id {
		t.Fatalf("expected RuleID to be preserved, got %v want %v", re.RuleID, id)
	}
	if re.RulePredicate != "oldest" || re.CallIndex != 2 {
		t.Fatalf("unexpected context: %+v", re)
	}
	if re.CellSnapshot["X"] != "bob" {
		t.Fatalf("expected cell snapshot to be preserved, got %v", re.CellSnapshot)
	}
	if !strings.Contains(re.Error(), "host function panicked") {
		t.Fatalf("expected wrapped cause in error message, got %q", re.Error())
	}
}

func TestIsDuplicateKeyUnwrapsChain(t *testing.T) {
	base := newError(ErrDuplicateKey, "key a already present")
	wrapped := wrapError(ErrRuleExecution, base, "while adding row")
	if !isDuplicateKey(wrapped) {
		t.Fatal("expected isDuplicateKey to see through a wrapError chain")
	}
	if isDuplicateKey(errors.New("unrelated")) {
		t.Fatal("expected isDuplicateKey to reject an unrelated error")
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrInstantiation: "Instantiation",
		ErrDuplicateKey:  "DuplicateKey",
		ErrModeConflict:  "ModeConflict",
		ErrCycle:         "Cycle",
		ErrCapability:    "Capability",
		ErrRuleExecution: "RuleExecution",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("ErrorKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
