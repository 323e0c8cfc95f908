package views

import (
	"context"
	"sync"

	"github.com/username/directreg/src/models"
)

// Lifetime is the cancellation scope of one view mount. Work started for a
// mount runs under its context; once torn down, late completions must not
// touch view state.
type Lifetime struct {
	key    models.RefreshToken
	ctx    context.Context
	cancel context.CancelFunc
}

func newLifetime(key models.RefreshToken) *Lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifetime{key: key, ctx: ctx, cancel: cancel}
}

// Key is the refresh token the mount was created for.
func (l *Lifetime) Key() models.RefreshToken { return l.key }

// Alive reports whether the mount has not been torn down.
func (l *Lifetime) Alive() bool { return l.ctx.Err() == nil }

// Teardown cancels pending work. It is idempotent.
func (l *Lifetime) Teardown() { l.cancel() }

// Bind derives a context from parent that keeps parent's values (the request
// logger) but is cancelled by the lifetime instead of by parent, so a fetch
// outlives the request that started it and dies with the mount.
func (l *Lifetime) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(l.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// mount is one fetch-on-mount cycle. The fetch starts at most once; callers
// arriving while it runs share its result.
type mount[T any] struct {
	lifetime *Lifetime
	once     sync.Once
	done     chan struct{}
	value    T
	err      error
}

func newMount[T any](key models.RefreshToken) *mount[T] {
	return &mount[T]{lifetime: newLifetime(key), done: make(chan struct{})}
}

// start runs fetch once. apply is called with the result only while the
// mount is alive; the caller's apply must re-check identity under its lock.
func (m *mount[T]) start(ctx context.Context, fetch func(context.Context) (T, error), apply func(T, error)) {
	m.once.Do(func() {
		fctx, cancel := m.lifetime.Bind(ctx)
		go func() {
			defer close(m.done)
			defer cancel()
			m.value, m.err = fetch(fctx)
			if m.lifetime.Alive() {
				apply(m.value, m.err)
			}
		}()
	})
}

// wait blocks until the fetch finished or ctx is done.
func (m *mount[T]) wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finished reports whether the fetch completed.
func (m *mount[T]) finished() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *mount[T]) teardown() { m.lifetime.Teardown() }
