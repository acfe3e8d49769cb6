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
	"hash/maphash"
	"reflect"
	"sync"

	"golang.org/x/exp/constraints"
)

// Capability bundles the per-type operations §6's external type contract
// requires: equality and hashing are mandatory for every column type;
// ordering is only required for types used with a comparison primitive;
// arithmetic is only required for types used in a numeric Eval expression.
// Registration happens once per type, before any predicate using it is
// built: init() registers the built-in kinds, and host code registers its
// own. Predicate creation does not register or check a capability; each
// comparison, hash, or arithmetic operation looks its column type up in
// this table when it runs. A host type that isn't one of the built-in
// numeric/string/bool kinds (e.g. a struct column type) registers its own
// Capability via RegisterCapability instead of RegisterOrdered.
type Capability struct {
	Equal func(a, b any) bool
	Hash  func(seed maphash.Seed, v any) uint64
	Less  func(a, b any) (bool, error) // a < b
	Arith ArithmeticOps
}

// ArithmeticOps is the numeric capability §6 requires for Eval expressions
// built from the built-in +, -, *, /, % and bitwise operators.
type ArithmeticOps struct {
	Add, Sub, Mul, Div, Mod func(a, b any) (any, error)
	And, Or, Xor            func(a, b any) (any, error)
}

var (
	capMu    sync.RWMutex
	capTable = map[reflect.Type]*Capability{}
	hashSeed = maphash.MakeSeed()
)

// RegisterCapability installs equality, hashing, ordering, and arithmetic
// for a host column type. Called once, typically from an init() function,
// before any predicate using the type is constructed. Ordering and
// arithmetic are optional (leave the corresponding fields nil); comparison
// primitives and Eval's arithmetic operators fail with ErrCapability if
// invoked against a type that didn't register them.
func RegisterCapability(t reflect.Type, c Capability) {
	capMu.Lock()
	defer capMu.Unlock()
	cp := c
	capTable[t] = &cp
}

func lookupCapability(t reflect.Type) (*Capability, bool) {
	capMu.RLock()
	defer capMu.RUnlock()
	c, ok := capTable[t]
	return c, ok
}

func mustCapability(t reflect.Type) (*Capability, error) {
	c, ok := lookupCapability(t)
	if !ok {
		return nil, newError(ErrCapability, "no equality/hash capability registered for type %s", t)
	}
	return c, nil
}

func equalValues(t reflect.Type, a, b any) (bool, error) {
	c, err := mustCapability(t)
	if err != nil {
		return false, err
	}
	return c.Equal(a, b), nil
}

func hashValue(t reflect.Type, v any) (uint64, error) {
	c, err := mustCapability(t)
	if err != nil {
		return 0, err
	}
	return c.Hash(hashSeed, v), nil
}

func lessValues(t reflect.Type, a, b any) (bool, error) {
	c, err := mustCapability(t)
	if err != nil {
		return false, err
	}
	if c.Less == nil {
		return false, newError(ErrCapability, "type %s has no ordering capability", t)
	}
	return c.Less(a, b)
}

// compareValues returns -1, 0, or 1 using equality plus ordering, the way
// the comparison primitives (<, <=, >, >=) need it.
func compareValues(t reflect.Type, a, b any) (int, error) {
	eq, err := equalValues(t, a, b)
	if err != nil {
		return 0, err
	}
	if eq {
		return 0, nil
	}
	lt, err := lessValues(t, a, b)
	if err != nil {
		return 0, err
	}
	if lt {
		return -1, nil
	}
	return 1, nil
}

// RegisterOrdered installs the standard equal/hash/less capability (no
// arithmetic; see RegisterInteger and RegisterFloat) for a Go built-in
// ordered numeric (or string) type T, using
// golang.org/x/exp/constraints to keep the registration generic across the
// whole family of integer, float, and string kinds instead of writing one
// copy per type.
func RegisterOrdered[T constraints.Ordered]() {
	var zero T
	t := reflect.TypeOf(zero)
	RegisterCapability(t, Capability{
		Equal: func(a, b any) bool { return a.(T) == b.(T) },
		Hash: func(seed maphash.Seed, v any) uint64 {
			var h maphash.Hash
			h.SetSeed(seed)
			fmt.Fprintf(&h, "%v", v.(T))
			return h.Sum64()
		},
		Less: func(a, b any) (bool, error) { return a.(T) < b.(T), nil },
	})
}

// RegisterInteger additionally installs +, -, *, /, %, and bitwise
// operators for an integer type T, for use in Eval expressions.
func RegisterInteger[T constraints.Integer]() {
	RegisterOrdered[T]()
	capMu.Lock()
	c := capTable[reflect.TypeOf(T(0))]
	capMu.Unlock()
	c.Arith = ArithmeticOps{
		Add: func(a, b any) (any, error) { return a.(T) + b.(T), nil },
		Sub: func(a, b any) (any, error) { return a.(T) - b.(T), nil },
		Mul: func(a, b any) (any, error) { return a.(T) * b.(T), nil },
		Div: func(a, b any) (any, error) {
			if b.(T) == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a.(T) / b.(T), nil
		},
		Mod: func(a, b any) (any, error) {
			if b.(T) == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return a.(T) % b.(T), nil
		},
		And: func(a, b any) (any, error) { return a.(T) & b.(T), nil },
		Or:  func(a, b any) (any, error) { return a.(T) | b.(T), nil },
		Xor: func(a, b any) (any, error) { return a.(T) ^ b.(T), nil },
	}
}

// RegisterFloat installs +, -, *, / (no modulo, no bitwise) for a float
// type T, for use in Eval expressions.
func RegisterFloat[T constraints.Float]() {
	RegisterOrdered[T]()
	capMu.Lock()
	c := capTable[reflect.TypeOf(T(0))]
	capMu.Unlock()
	c.Arith = ArithmeticOps{
		Add: func(a, b any) (any, error) { return a.(T) + b.(T), nil },
		Sub: func(a, b any) (any, error) { return a.(T) - b.(T), nil },
		Mul: func(a, b any) (any, error) { return a.(T) * b.(T), nil },
		Div: func(a, b any) (any, error) { return a.(T) / b.(T), nil },
	}
}

func init() {
	RegisterInteger[int]()
	RegisterInteger[int8]()
	RegisterInteger[int16]()
	RegisterInteger[int32]()
	RegisterInteger[int64]()
	RegisterInteger[uint]()
	RegisterInteger[uint8]()
	RegisterInteger[uint16]()
	RegisterInteger[uint32]()
	RegisterInteger[uint64]()
	RegisterFloat[float32]()
	RegisterFloat[float64]()
	RegisterOrdered[string]()
	RegisterCapability(reflect.TypeOf(false), Capability{
		Equal: func(a, b any) bool { return a.(bool) == b.(bool) },
		Hash: func(seed maphash.Seed, v any) uint64 {
			var h maphash.Hash
			h.SetSeed(seed)
			if v.(bool) {
				h.WriteByte(1)
			} else {
				h.WriteByte(0)
			}
			return h.Sum64()
		},
	})
}
