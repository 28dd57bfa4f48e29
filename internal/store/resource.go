package store

import (
	"slices"

	"github.com/bookstore/storefront/internal/model"
)

// Resource is the state of one collection: its data, whether a request for it
// is in flight and the message of its last failure.
//
// Reads are sequenced. Each read takes the next number; a response is applied
// only if no later-numbered read or local patch was applied first.
type Resource[T any] struct {
	Data    T      `json:"data"`
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`

	inflight int
	seq      uint64
	applied  uint64
}

// lifecycle is the loading/error half of a Resource, independent of its data type.
type lifecycle interface {
	start()
	finish()
	fail(message string)
}

func (r *Resource[T]) start() {
	r.inflight++
	r.Loading = true
	r.Err = ""
}

func (r *Resource[T]) finish() {
	if r.inflight > 0 {
		r.inflight--
	}
	r.Loading = r.inflight > 0
}

func (r *Resource[T]) fail(message string) {
	r.Err = message
}

// next reserves the sequence number of a read.
func (r *Resource[T]) next() uint64 {
	r.seq++
	return r.seq
}

// accept applies data read under seq unless it is stale.
func (r *Resource[T]) accept(seq uint64, data T) bool {
	if seq <= r.applied {
		return false
	}
	r.applied = seq
	r.Data = data
	return true
}

// stale reports whether a read under seq has been superseded.
func (r *Resource[T]) stale(seq uint64) bool {
	return seq <= r.applied
}

// patch replaces the data locally. Reads issued before the patch are discarded.
func (r *Resource[T]) patch(data T) {
	r.applied = r.next()
	r.Data = data
}

// AdminList is an admin resource: the current page, its pagination and the
// criteria that produced it.
type AdminList[T any] struct {
	Items      Resource[[]T]    `json:"items"`
	Pagination model.Pagination `json:"pagination"`
	Query      model.AdminQuery `json:"query"`
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}
