package regionshot

import (
	"context"
	"time"
)

// Context creates a clone with a context that inherits the previous one.
// Canceling the context cancels the running session and restores the page.
func (s *Shooter) Context(ctx context.Context) *Shooter {
	if ctx == s.ctx {
		return s
	}

	ctx, cancel := context.WithCancel(ctx)
	newObj := *s
	newObj.ctx = ctx
	newObj.ctxCancel = cancel
	return &newObj
}

// GetContext of current instance
func (s *Shooter) GetContext() context.Context {
	return s.ctx
}

// Cancel current context
func (s *Shooter) Cancel() *Shooter {
	s.ctxCancel()
	return s
}

// Timeout for chained sub-operations
func (s *Shooter) Timeout(d time.Duration) *Shooter {
	ctx, cancel := context.WithTimeout(s.ctx, d)
	s.timeoutCancel = cancel
	return s.Context(ctx)
}

// CancelTimeout context
func (s *Shooter) CancelTimeout() *Shooter {
	s.timeoutCancel()
	return s
}
