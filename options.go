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
	"math/rand"

	"go.uber.org/zap"
)

// randSource is the randomness Prob, RandomElement, and PickRandomly draw
// from. *math/rand.Rand already implements it, so WithRNG takes one
// directly; seeding it is a host concern (§1's non-goals exclude global RNG
// seeding from ted itself).
type randSource interface {
	Float64() float64
	Intn(n int) int
}

// Database is the top-level handle for a set of related predicates: it owns
// the predicate registry, the dependency graph used for cycle detection and
// lazy evaluation (§4.6), and the ambient configuration (logger, RNG,
// initial table capacity) threaded through every predicate it creates.
// Build one with NewDatabase.
type Database struct {
	logger          *zap.Logger
	rng             randSource
	initialCapacity int

	predicates map[string]*Predicate
	dependsOn  map[*Predicate]map[*Predicate]bool // p -> predicates p's rules read
	dependents map[*Predicate]map[*Predicate]bool // p -> predicates that read p
}

// Option configures a Database built by NewDatabase.
type Option func(*Database)

// WithLogger installs a *zap.Logger for scheduler/table/rule diagnostics.
// The default is a no-op logger, matching how the pack's embeddable
// libraries avoid forcing logging configuration on every caller.
func WithLogger(l *zap.Logger) Option {
	return func(db *Database) { db.logger = l }
}

// WithInitialCapacity sets the starting row capacity (rounded up to a power
// of two, minimum 2) for every table the Database creates afterward.
func WithInitialCapacity(n int) Option {
	return func(db *Database) { db.initialCapacity = n }
}

// WithRNG installs the source of randomness for Prob, RandomElement, and
// PickRandomly. Without this option, a fixed-seed source is used so runs
// are reproducible by default; callers wanting real randomness should seed
// and pass their own *rand.Rand.
func WithRNG(r *rand.Rand) Option {
	return func(db *Database) { db.rng = r }
}

// NewDatabase creates an empty Database ready to accept NewTable and
// NewDefinition predicates.
func NewDatabase(opts ...Option) *Database {
	db := &Database{
		logger:          zap.NewNop(),
		rng:             rand.New(rand.NewSource(1)),
		initialCapacity: minTableCapacity,
		predicates:      map[string]*Predicate{},
		dependsOn:       map[*Predicate]map[*Predicate]bool{},
		dependents:      map[*Predicate]map[*Predicate]bool{},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// NewTable registers a table predicate named name with the given columns.
// unique enables the companion row-set that silently drops whole-tuple
// duplicates and serves RowSetProbe (§3, §4.3).
func (db *Database) NewTable(name string, unique bool, columns ...ColumnSpec) (*Predicate, error) {
	if _, exists := db.predicates[name]; exists {
		return nil, fmt.Errorf("ted: predicate %s already registered", name)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("ted: table predicate %s must have at least one column", name)
	}
	p := newTablePredicate(db, name, columns, unique, db.initialCapacity, db.logger)
	db.predicates[name] = p
	db.dependsOn[p] = map[*Predicate]bool{}
	db.dependents[p] = map[*Predicate]bool{}
	return p, nil
}

// NewDefinition registers a non-recursive macro predicate: calling it
// splices body into the caller, substituting actuals for formals, per
// §4.2/§6. body is the definition's single clause.
func (db *Database) NewDefinition(name string, formals []*Variable, body ...*Goal) (*Predicate, error) {
	if _, exists := db.predicates[name]; exists {
		return nil, fmt.Errorf("ted: predicate %s already registered", name)
	}
	columns := make([]ColumnSpec, len(formals))
	for i, f := range formals {
		columns[i] = ColumnSpec{Name: f.Name, Type: f.typ}
	}
	p := newDefinitionPredicate(db, name, columns, formals, body)
	db.predicates[name] = p
	return p, nil
}
