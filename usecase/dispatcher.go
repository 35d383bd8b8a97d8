package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/lucagalbu/task-manager/domain"
)

// Handler executes a named operation against raw JSON variables.
type Handler func(ctx context.Context, variables json.RawMessage) (interface{}, error)

// ErrUnknownOperation is returned for operations nobody registered.
var ErrUnknownOperation = domain.NewError(domain.ErrCodeInvalid, "unknown operation")

type Dispatcher struct {
	mutations map[string]Handler
	queries   map[string]Handler
	mu        sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		mutations: make(map[string]Handler),
		queries:   make(map[string]Handler),
	}
}

func (d *Dispatcher) RegisterMutation(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutations[name] = handler
}

func (d *Dispatcher) RegisterQuery(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries[name] = handler
}

// Execute runs the query or mutation registered under name.
func (d *Dispatcher) Execute(ctx context.Context, name string, variables json.RawMessage) (interface{}, error) {
	d.mu.RLock()
	handler, ok := d.queries[name]
	if !ok {
		handler, ok = d.mutations[name]
	}
	d.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(ErrUnknownOperation.Code, ErrUnknownOperation.Message, fmt.Errorf("%q", name))
	}
	return handler(ctx, variables)
}

// IsMutation reports whether name is a registered mutation.
func (d *Dispatcher) IsMutation(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.mutations[name]
	return ok
}

// Operations lists the registered query and mutation names in sorted order.
func (d *Dispatcher) Operations() (queries []string, mutations []string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for name := range d.queries {
		queries = append(queries, name)
	}
	for name := range d.mutations {
		mutations = append(mutations, name)
	}
	sort.Strings(queries)
	sort.Strings(mutations)
	return queries, mutations
}
