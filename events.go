package regionshot

import (
	"context"
	"time"

	"github.com/ysmood/goob"
)

// State of a capture session
type State string

const (
	// StateIdle before the session starts
	StateIdle State = "idle"
	// StateSelecting while the user drags
	StateSelecting State = "selecting"
	// StateHidingOverlays hides the sticky and fixed elements
	StateHidingOverlays State = "hiding-overlays"
	// StateScrolling moves the scroll target to the next position
	StateScrolling State = "scrolling"
	// StateSettling waits for the layout and paint to be stable
	StateSettling State = "settling"
	// StateRequesting waits for the host to capture the visible area
	StateRequesting State = "requesting"
	// StateRecording keeps the captured frame
	StateRecording State = "recording"
	// StateRestoring restores the page
	StateRestoring State = "restoring"
	// StateCompositing stitches the frames
	StateCompositing State = "compositing"
	// StateSaving hands the image to the Saver
	StateSaving State = "saving"
	// StateDone the image is saved
	StateDone State = "done"
	// StateFailed the session ends with an error
	StateFailed State = "failed"
	// StateCanceled the session is canceled
	StateCanceled State = "canceled"
)

// Event of a capture session
type Event struct {
	Session string
	State   State

	// Frame is the 1-based index of the capture step, zero outside the loop
	Frame int

	// Data is the captured bitmap, only set for StateRecording
	Data []byte `json:"-"`

	// Name of the saved file, only set for StateDone
	Name string `json:",omitempty"`

	Err  error `json:"-"`
	Time time.Time
}

// Subscribe to the events of all the sessions of the shooter.
// The channel is closed when ctx is done.
func (s *Shooter) Subscribe(ctx context.Context) <-chan *Event {
	ch := make(chan *Event)
	events := s.event.Subscribe(ctx)

	go func() {
		defer close(ch)
		for e := range events {
			select {
			case ch <- e.(*Event):
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

func (s *Shooter) publish(ss *session, e *Event) {
	e.Session = ss.id
	e.Time = time.Now()
	ss.state = e.State

	if s.trace {
		s.logger.Println(&TraceMsg{Session: ss.id, State: e.State, Frame: e.Frame, Err: e.Err})
	}

	s.event.Publish(e)
}

var _ goob.Event = &Event{}
