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

// Opcode classifies one argument position of one goal, per §4.1's mode
// inference: Constant for a literal, Read for a variable already bound
// earlier in the rule, Write on a variable's first occurrence (the goal
// must produce the value), Ignore for the Ignore() wildcard.
type Opcode int

const (
	OpConstant Opcode = iota
	OpRead
	OpWrite
	OpIgnore
)

func (o Opcode) String() string {
	switch o {
	case OpConstant:
		return "Constant"
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpIgnore:
		return "Ignore"
	default:
		return "?"
	}
}

// MatchOperation is one compiled argument of one goal: {opcode, cell}. It is
// created once by the analyzer and never mutated after compilation, per §3.
type MatchOperation struct {
	Op   Opcode
	Cell *ValueCell // nil for Ignore
}
