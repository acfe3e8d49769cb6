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
	"strings"

	"go.uber.org/zap"
)

// addDependencyEdge records that p's rules read dep, per §3's predicate
// dependency graph (edge dep -> p in the spec's own direction; we index it
// both ways so cycle detection walks dependsOn and invalidation walks
// dependents without rebuilding either).
func (db *Database) addDependencyEdge(p, dep *Predicate) {
	if db.dependsOn[p] == nil {
		db.dependsOn[p] = map[*Predicate]bool{}
	}
	db.dependsOn[p][dep] = true
	if db.dependents[dep] == nil {
		db.dependents[dep] = map[*Predicate]bool{}
	}
	db.dependents[dep][p] = true
}

func (db *Database) removeDependencyEdge(p, dep *Predicate) {
	delete(db.dependsOn[p], dep)
	delete(db.dependents[dep], p)
}

// findCycle reports whether the dependency graph built so far contains a
// cycle, per §7's policy of treating Cycle as a compile-time error that
// aborts registration -- checked here, at the point a new rule's edges were
// just added, rather than deferred to first EnsureUpToDate.
func (db *Database) findCycle() (bool, string) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[*Predicate]int{}
	var path []*Predicate

	var visit func(p *Predicate) (bool, string)
	visit = func(p *Predicate) (bool, string) {
		color[p] = gray
		path = append(path, p)
		for dep := range db.dependsOn[p] {
			switch color[dep] {
			case gray:
				start := 0
				for i, pp := range path {
					if pp == dep {
						start = i
						break
					}
				}
				names := make([]string, 0, len(path)-start+1)
				for _, pp := range path[start:] {
					names = append(names, pp.Name)
				}
				names = append(names, dep.Name)
				return true, strings.Join(names, " -> ")
			case white:
				if cyclic, desc := visit(dep); cyclic {
					return true, desc
				}
			}
		}
		path = path[:len(path)-1]
		color[p] = black
		return false, ""
	}

	for p := range db.predicates {
		pred := db.predicates[p]
		if color[pred] == white {
			if cyclic, desc := visit(pred); cyclic {
				return true, desc
			}
		}
	}
	return false, ""
}

// invalidateDependents marks every ruled predicate that transitively reads
// p as stale, per §4.6: EnsureUpToDate must rederive a predicate whenever
// anything it reads -- directly or through other rules -- has changed since
// it was last computed. This runs after every successful AddRow/Clear on an
// extensional table and after every new rule registration.
func (db *Database) invalidateDependents(p *Predicate) {
	seen := map[*Predicate]bool{}
	var walk func(*Predicate)
	walk = func(cur *Predicate) {
		for dep := range db.dependents[cur] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if dep.ruled {
				dep.upToDate = false
			}
			walk(dep)
		}
	}
	walk(p)
}

// ensureUpToDate recursively brings p's dependencies up to date, then (if p
// is rule-derived and stale) clears and rebuilds it by rerunning every rule,
// per §4.6. Extensional tables are always up to date once inserted into.
func (db *Database) ensureUpToDate(p *Predicate) error {
	if p.Kind != TableKind {
		return fmt.Errorf("ted: EnsureUpToDate requires a table predicate")
	}
	for dep := range db.dependsOn[p] {
		if err := db.ensureUpToDate(dep); err != nil {
			return err
		}
	}
	if !p.ruled || p.upToDate {
		return nil
	}
	if db.logger != nil {
		db.logger.Debug("rederiving predicate", zap.String("predicate", p.Name), zap.String("predicate_id", p.id.String()), zap.Int("rules", len(p.rules)))
	}
	p.table.Clear()
	for _, r := range p.rules {
		if err := r.addAllSolutions(); err != nil {
			return err
		}
	}
	p.upToDate = true
	if db.logger != nil {
		db.logger.Debug("predicate rederived", zap.String("predicate", p.Name), zap.String("predicate_id", p.id.String()), zap.String("table_id", p.table.id.String()), zap.Int("rows", p.table.Length()))
	}
	return nil
}
