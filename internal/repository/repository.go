// Package repository contains the data access abstractions: a realtime
// hierarchical document store addressed by slash-separated paths, and the
// admin account store. Implementations live in subpackages (postgres, memory).
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"siteadmin/internal/model"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrNotFound    = errors.New("not found")
)

// Repository is the realtime document store. Every write to a path is
// observable by subscribers of that path, its ancestors and its descendants.
type Repository interface {
	// Get returns the current value at path. A missing path yields a
	// Snapshot whose Exists reports false.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Subscribe delivers the full value at path once immediately and again
	// after every change affecting it, until ctx is done or Close is called.
	Subscribe(ctx context.Context, path string) (*Subscription, error)

	// Mutate applies a single Set, Push, Update or Remove at path.
	Mutate(ctx context.Context, path string, op Operation) (Result, error)
}

// AdminRepository persists administrator credentials.
type AdminRepository interface {
	// FindByEmail returns ErrNotFound when no admin has the email.
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	// Upsert creates the admin or replaces the password hash of an existing one.
	Upsert(ctx context.Context, admin *model.Admin) (*model.Admin, error)
}

// Snapshot is the value at a path at one point in time.
type Snapshot struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

func (s Snapshot) Exists() bool {
	return len(s.Value) > 0 && string(s.Value) != "null"
}

// Decode unmarshals the value into v. It is a no-op for a missing value.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return nil
	}
	return json.Unmarshal(s.Value, v)
}

// Child is one direct child of an object value.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Children lists the direct children in key order. Non-object values have none.
func (s Snapshot) Children() []Child {
	if !s.Exists() {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(s.Value, &m); err != nil {
		return nil
	}
	out := make([]Child, 0, len(m))
	for k, v := range m {
		out = append(out, Child{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpPush
	OpUpdate
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpPush:
		return "push"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Operation is a single mutation. Build one with Set, Push, Update or Remove.
type Operation struct {
	Kind   OpKind
	Value  any
	Fields map[string]any
}

// Set replaces the whole value at the path. A nil value removes it.
func Set(v any) Operation { return Operation{Kind: OpSet, Value: v} }

// Push stores v under a new, time-ordered child key of the path.
func Push(v any) Operation { return Operation{Kind: OpPush, Value: v} }

// Update merges the given children into the value at the path, leaving
// other children untouched. A nil field value removes that child.
func Update(fields map[string]any) Operation { return Operation{Kind: OpUpdate, Fields: fields} }

// Remove deletes the value at the path and everything below it.
func Remove() Operation { return Operation{Kind: OpRemove} }

// Result reports where a mutation landed. Key is set for Push.
type Result struct {
	Path string
	Key  string
}
