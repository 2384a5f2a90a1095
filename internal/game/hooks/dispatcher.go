package hooks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/magefree/arena-server-go/internal/game/model"
)

// Separator splits event names into path segments.
const Separator = ":"

// Path is an event name parsed into its segments.
type Path []string

// ParsePath splits a colon-delimited event name. Empty segments are dropped.
func ParsePath(name string) Path {
	parts := strings.Split(name, Separator)
	out := make(Path, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Child returns a new path extended with more segments.
func (p Path) Child(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Params carries the subject of an event. Unused fields stay zero.
type Params struct {
	Card   *model.Card
	Source *model.Card
	User   string
	Amount int
	Action *model.Action
	Coord  *model.Coord
}

// Hook reacts to an event. Returning false marks the hook as not applicable;
// returning an error aborts the dispatch.
type Hook func(ctx context.Context, inst *model.GameInstance, params Params) (bool, error)

// Handle identifies a subscription for Unsubscribe.
type Handle uint64

type subscription struct {
	handle Handle
	hook   Hook
}

type node struct {
	children map[string]*node
	hooks    []subscription
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

type stateLockKey struct{}

// WithStateLock attaches the lock guarding an instance to ctx. Dispatch
// releases it while hooks fan out and each hook holds it while it runs.
func WithStateLock(ctx context.Context, l sync.Locker) context.Context {
	return context.WithValue(ctx, stateLockKey{}, l)
}

func stateLock(ctx context.Context) sync.Locker {
	l, _ := ctx.Value(stateLockKey{}).(sync.Locker)
	return l
}

// Dispatcher is a prefix-indexed hook table. A dispatch of a:b:c fires the
// hooks registered at a, a:b and a:b:c.
type Dispatcher struct {
	logger *zap.Logger

	mu     sync.RWMutex
	root   *node
	paths  map[Handle]Path
	nextID Handle
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger: logger,
		root:   newNode(),
		paths:  make(map[Handle]Path),
	}
}

// Subscribe registers a hook under a colon-delimited event name.
func (d *Dispatcher) Subscribe(name string, hook Hook) Handle {
	return d.SubscribePath(ParsePath(name), hook)
}

// SubscribePath registers a hook under a parsed path.
func (d *Dispatcher) SubscribePath(path Path, hook Hook) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.root
	for _, seg := range path {
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	d.nextID++
	h := d.nextID
	n.hooks = append(n.hooks, subscription{handle: h, hook: hook})
	d.paths[h] = path
	return h
}

// Unsubscribe removes a hook. Unknown handles are ignored.
func (d *Dispatcher) Unsubscribe(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path, ok := d.paths[h]
	if !ok {
		return
	}
	delete(d.paths, h)
	n := d.root
	for _, seg := range path {
		n = n.children[seg]
		if n == nil {
			return
		}
	}
	for i, sub := range n.hooks {
		if sub.handle == h {
			n.hooks = append(n.hooks[:i:i], n.hooks[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered hooks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.paths)
}

func (d *Dispatcher) match(path Path) []Hook {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Hook
	n := d.root
	for _, seg := range path {
		n = n.children[seg]
		if n == nil {
			break
		}
		for _, sub := range n.hooks {
			out = append(out, sub.hook)
		}
	}
	return out
}

// Dispatch fires every hook registered at every prefix of path. Hooks run
// concurrently and are joined before Dispatch returns. The first hook error
// or panic is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, inst *model.GameInstance, path Path, params Params) error {
	matched := d.match(path)
	if len(matched) == 0 {
		return nil
	}
	name := path.String()
	d.logger.Debug("dispatching event",
		zap.String("game_id", inst.ID),
		zap.String("event", name),
		zap.Int("hooks", len(matched)))

	lock := stateLock(ctx)
	if lock != nil {
		lock.Unlock()
		defer lock.Lock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, hook := range matched {
		g.Go(func() (err error) {
			if lock != nil {
				lock.Lock()
				defer lock.Unlock()
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("hook on %s panicked: %v", name, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := hook(gctx, inst, params); err != nil {
				return fmt.Errorf("hook on %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Warn("event dispatch failed",
			zap.String("game_id", inst.ID),
			zap.String("event", name),
			zap.Error(err))
		return err
	}
	return nil
}

// DispatchName parses name and dispatches it.
func (d *Dispatcher) DispatchName(ctx context.Context, inst *model.GameInstance, name string, params Params) error {
	return d.Dispatch(ctx, inst, ParsePath(name), params)
}
