package regionshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-rod/regionshot/lib/utils"
)

// releaseTimeout bounds the cleanup of the page after the session context is done
const releaseTimeout = 10 * time.Second

var errUserCanceled = errors.New("canceled by the user")

// session holds every change a capture makes to the page, so that all of
// them can be undone on any exit path.
type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelCauseFunc
	logger utils.Logger
	state  State

	lock     sync.Mutex
	releases []*release
}

type release struct {
	name string
	fn   Releaser
	once sync.Once
	err  error
}

func newSession(ctx context.Context, logger utils.Logger) *session {
	ctx, cancel := context.WithCancelCause(ctx)
	return &session{
		id:     utils.RandString(4),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		state:  StateIdle,
	}
}

// hold fn until the session closes, the returned func releases it early.
// Each fn runs at most once.
func (ss *session) hold(name string, fn Releaser) func() error {
	r := &release{name: name, fn: fn}

	ss.lock.Lock()
	ss.releases = append(ss.releases, r)
	ss.lock.Unlock()

	return func() error {
		return ss.run(r)
	}
}

func (ss *session) run(r *release) error {
	r.once.Do(func() {
		// The session context may already be canceled, the page still needs to be restored.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ss.ctx), releaseTimeout)
		defer cancel()

		r.err = r.fn(ctx)
		if r.err != nil {
			ss.logger.Println("[release]", r.name, r.err)
		}

		ss.lock.Lock()
		defer ss.lock.Unlock()
		for i, item := range ss.releases {
			if item == r {
				ss.releases = append(ss.releases[:i], ss.releases[i+1:]...)
				break
			}
		}
	})
	return r.err
}

// unwind releases everything in the reverse order, returns the first error
func (ss *session) unwind() error {
	var first error
	for {
		ss.lock.Lock()
		n := len(ss.releases)
		if n == 0 {
			ss.lock.Unlock()
			return first
		}
		r := ss.releases[n-1]
		ss.lock.Unlock()

		if err := ss.run(r); err != nil && first == nil {
			first = err
		}
	}
}

// close unwinds the session and cancels its context
func (ss *session) close() error {
	err := ss.unwind()
	ss.cancel(context.Canceled)
	return err
}

// err converts the context error of the session to *Error, nil if ctx is not done
func (ss *session) err() error {
	if ss.ctx.Err() == nil {
		return nil
	}
	return newErr(ErrCanceled, context.Cause(ss.ctx), nil)
}
