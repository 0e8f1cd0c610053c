// Package memory provides in-process implementations of the repository
// interfaces for local development and tests.
package memory

import (
	"context"
	"sync"

	"siteadmin/internal/idgen"
	"siteadmin/internal/repository"
)

// NodeRepository keeps the document tree as leaves in a map.
// It is safe for concurrent use.
type NodeRepository struct {
	mu       sync.RWMutex
	leaves   repository.Leaves
	broker   *repository.Broker
	notifier repository.Notifier
	newKey   func() string
}

type Option func(*NodeRepository)

// WithNotifier also relays change signals through n to other instances.
func WithNotifier(n repository.Notifier) Option {
	return func(r *NodeRepository) { r.notifier = n }
}

// WithKeyFunc overrides push key generation.
func WithKeyFunc(f func() string) Option {
	return func(r *NodeRepository) { r.newKey = f }
}

func NewNodeRepository(broker *repository.Broker, opts ...Option) *NodeRepository {
	r := &NodeRepository{
		leaves: repository.Leaves{},
		broker: broker,
		newKey: idgen.PushKey,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *NodeRepository) Get(_ context.Context, path string) (repository.Snapshot, error) {
	path, err := repository.CleanPath(path)
	if err != nil {
		return repository.Snapshot{}, err
	}

	r.mu.RLock()
	sub := repository.Leaves{}
	for p, v := range r.leaves {
		if repository.IsWithin(p, path) {
			sub[p] = v
		}
	}
	r.mu.RUnlock()

	value, err := repository.Assemble(path, sub)
	if err != nil {
		return repository.Snapshot{}, err
	}
	return repository.Snapshot{Path: path, Value: value}, nil
}

func (r *NodeRepository) Subscribe(ctx context.Context, path string) (*repository.Subscription, error) {
	path, err := repository.CleanPath(path)
	if err != nil {
		return nil, err
	}
	return r.broker.Subscribe(ctx, path, r.Get)
}

func (r *NodeRepository) Mutate(ctx context.Context, path string, op repository.Operation) (repository.Result, error) {
	plan, err := repository.Prepare(path, op, r.newKey)
	if err != nil {
		return repository.Result{}, err
	}

	r.mu.Lock()
	for _, w := range plan.Writes {
		r.apply(w)
	}
	r.mu.Unlock()

	r.broker.Announce(ctx, r.notifier, plan.Result.Path)
	return plan.Result, nil
}

// apply must be called with mu held.
func (r *NodeRepository) apply(w repository.Write) {
	for p := range r.leaves {
		if repository.IsWithin(p, w.Path) {
			delete(r.leaves, p)
		}
	}
	if len(w.Leaves) > 0 {
		for _, a := range repository.Ancestors(w.Path) {
			delete(r.leaves, a)
		}
	}
	for p, v := range w.Leaves {
		r.leaves[p] = v
	}
}
