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

// Row is one tuple of a table: one value per column, in column order. ted
// boxes column values behind `any` rather than generating monomorphic code
// per arity (design note 9's "arity explosion" alternative) -- each
// column's static type is still recorded on its ColumnSpec and enforced by
// Table.addRow.
type Row []any

func (r Row) clone() Row {
	c := make(Row, len(r))
	copy(c, r)
	return c
}

// NoRow is the sentinel meaning "no row", used by both hash index kinds.
const NoRow uint32 = 1<<32 - 1
