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
	"github.com/hashicorp/errwrap"
	multierror "github.com/hashicorp/go-multierror"
)

// ErrorKind classifies the errors ted can report. See Error's doc for which
// kinds are compile-time failures and which come from a running
// evaluation.
type ErrorKind int

const (
	// ErrInstantiation means a primitive or comparison received an unbound
	// variable, or a head variable was never bound by the rule's body.
	ErrInstantiation ErrorKind = iota
	// ErrDuplicateKey means a row was appended whose key-column value
	// already exists in a keyed index.
	ErrDuplicateKey
	// ErrModeConflict means manual row insertion was mixed with rule
	// definitions on the same predicate.
	ErrModeConflict
	// ErrCycle means the predicate dependency graph contains a cycle.
	ErrCycle
	// ErrCapability means a numeric/comparison primitive was instantiated
	// for a column type lacking the required operation.
	ErrCapability
	// ErrRuleExecution wraps a host-raised error from within NextSolution.
	ErrRuleExecution
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInstantiation:
		return "Instantiation"
	case ErrDuplicateKey:
		return "DuplicateKey"
	case ErrModeConflict:
		return "ModeConflict"
	case ErrCycle:
		return "Cycle"
	case ErrCapability:
		return "Capability"
	case ErrRuleExecution:
		return "RuleExecution"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type ted returns. Kind lets callers
// distinguish compile-time failures (Instantiation, Cycle, ModeConflict)
// from runtime ones (DuplicateKey, RuleExecution) without string matching.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ted: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("ted: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// RuleExecutionError is the ErrRuleExecution payload: it records enough
// context to diagnose a host-raised failure inside a rule's body without
// re-running the rule.
type RuleExecutionError struct {
	*Error
	RuleID        uuid.UUID
	RulePredicate string
	RuleIndex     int
	CallIndex     int
	CellSnapshot  map[string]any
}

func newRuleExecutionError(ruleID uuid.UUID, predName string, ruleIndex, callIndex int, cells map[string]any, cause error) *RuleExecutionError {
	wrapped := errwrap.Wrapf("rule execution failed: {{err}}", cause)
	return &RuleExecutionError{
		Error:         wrapError(ErrRuleExecution, wrapped, "predicate %s rule #%d call #%d (rule %s)", predName, ruleIndex, callIndex, ruleID),
		RuleID:        ruleID,
		RulePredicate: predName,
		RuleIndex:     ruleIndex,
		CallIndex:     callIndex,
		CellSnapshot:  cells,
	}
}

// multiError accumulates independent compile-time failures (e.g. every
// goal in a rule body can separately raise Instantiation) so a caller sees
// all of them from one registration attempt instead of only the first.
type multiError struct {
	errs *multierror.Error
}

func (m *multiError) add(err error) {
	if err == nil {
		return
	}
	m.errs = multierror.Append(m.errs, err)
}

func (m *multiError) errorOrNil() error {
	if m.errs == nil {
		return nil
	}
	return m.errs.ErrorOrNil()
}
