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

// Package ted is an embedded, strongly-typed deductive database. Host
// programs declare predicates -- either extensional tables whose rows are
// inserted directly, or intensional tables whose rows are derived by rules
// whose bodies are conjunctions of other predicate calls -- and run a
// forward-chaining evaluation that materializes every derivable row.
//
// The predicate dependency graph must be a DAG: ted does not support
// recursive rules or fixpoint iteration. There is no persistence and no
// wire format; everything lives in memory for the life of the host process.
package ted
