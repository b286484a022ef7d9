package testutil

import (
	"context"
	"sync"

	"relay/internal/gateway"
)

// Op names a gateway method.
type Op string

const (
	OpSelect    Op = "select"
	OpSelectOne Op = "select_one"
	OpInsert    Op = "insert"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
)

// Gateway wraps another gateway, counts calls per method and collection, and fails
// or pauses the ones it is told to.
type Gateway struct {
	gateway.Gateway

	mu    sync.Mutex
	fail  map[Op]error
	calls map[Op]int
	// Before runs ahead of every delegated call, outside the lock.
	Before func(op Op, c gateway.Collection)
}

func Wrap(gw gateway.Gateway) *Gateway {
	return &Gateway{Gateway: gw, fail: map[Op]error{}, calls: map[Op]int{}}
}

// Fail makes op return err until Heal.
func (g *Gateway) Fail(op Op, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[op] = err
}

func (g *Gateway) Heal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.fail)
}

// Calls returns how often op was invoked, failed calls included.
func (g *Gateway) Calls(op Op) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// Total returns the number of data calls of any kind.
func (g *Gateway) Total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *Gateway) enter(op Op, c gateway.Collection) error {
	g.mu.Lock()
	g.calls[op]++
	err := g.fail[op]
	before := g.Before
	g.mu.Unlock()

	if before != nil {
		before(op, c)
	}
	return err
}

func (g *Gateway) Select(ctx context.Context, c gateway.Collection, q gateway.Query, dest any) error {
	if err := g.enter(OpSelect, c); err != nil {
		return err
	}
	return g.Gateway.Select(ctx, c, q, dest)
}

func (g *Gateway) SelectOne(ctx context.Context, c gateway.Collection, q gateway.Query, dest any) error {
	if err := g.enter(OpSelectOne, c); err != nil {
		return err
	}
	return g.Gateway.SelectOne(ctx, c, q, dest)
}

func (g *Gateway) Insert(ctx context.Context, c gateway.Collection, row any, joins ...gateway.Join) error {
	if err := g.enter(OpInsert, c); err != nil {
		return err
	}
	return g.Gateway.Insert(ctx, c, row, joins...)
}

func (g *Gateway) Update(ctx context.Context, c gateway.Collection, f gateway.Filter, patch map[string]any, dest any) error {
	if err := g.enter(OpUpdate, c); err != nil {
		return err
	}
	return g.Gateway.Update(ctx, c, f, patch, dest)
}

func (g *Gateway) Delete(ctx context.Context, c gateway.Collection, f gateway.Filter) error {
	if err := g.enter(OpDelete, c); err != nil {
		return err
	}
	return g.Gateway.Delete(ctx, c, f)
}
