// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

// A Bag is a per-execution scratch space shared by the middlewares
// taking part in one logical request, including its retries.
//
// Entries are addressed by keys created with NewKey, never by bare
// strings, so independently written middlewares cannot collide. A Bag
// belongs to exactly one Execution and is only touched from the
// goroutine dispatching that execution, so it is not synchronized.
type Bag struct {
	m map[interface{}]interface{}
}

// Len returns the number of entries in the bag.
func (b *Bag) Len() int {
	return len(b.m)
}

// A Key is an unforgeable handle to a Bag entry of type T. Two keys are
// equal only if they are the same pointer, regardless of their names.
type Key[T any] struct {
	name string
}

// NewKey creates a new key. The name is only used for debugging.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// String returns the debugging name of the key.
func (k *Key[T]) String() string {
	return "pipex.Key(" + k.name + ")"
}

// Get returns the value stored under k in b and whether it was present.
func (k *Key[T]) Get(b *Bag) (T, bool) {
	var zero T
	if b == nil || b.m == nil {
		return zero, false
	}
	v, ok := b.m[k]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Value returns the value stored under k in b, or the zero value of T.
func (k *Key[T]) Value(b *Bag) T {
	v, _ := k.Get(b)
	return v
}

// Set stores v under k in b.
func (k *Key[T]) Set(b *Bag, v T) {
	if b.m == nil {
		b.m = make(map[interface{}]interface{})
	}
	b.m[k] = v
}

// Delete removes the entry for k from b.
func (k *Key[T]) Delete(b *Bag) {
	delete(b.m, k)
}
