package regionshot

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-rod/regionshot/lib/defaults"
	"github.com/go-rod/regionshot/lib/stitch"
	"github.com/go-rod/regionshot/lib/utils"
	"github.com/ysmood/goob"
)

// Instructions shown on the overlay by default
const Instructions = "Click where you want to start and drag to where you want to end"

// Shooter runs capture sessions on a page, one at a time.
// The default options come from the lib/defaults package.
type Shooter struct {
	ctx           context.Context
	ctxCancel     func()
	timeoutCancel func()

	doc      Document
	capturer Capturer
	saver    Saver

	logger       utils.Logger
	trace        bool
	settle       time.Duration
	pause        time.Duration
	margin       float64
	speed        float64
	tick         time.Duration
	instructions string

	// shared by the clones created by Context
	active *atomic.Bool
	event  *goob.Observable
}

// Result of a capture session
type Result struct {
	// Name of the saved file
	Name      string
	Selection Selection
	// Frames is the number of the captures stitched together
	Frames int
	PNG    []byte
}

// New shooter. The doc is the page to capture, the capturer takes the bitmap
// of its visible area, the saver stores the final png.
func New(doc Document, capturer Capturer, saver Saver) *Shooter {
	return &Shooter{
		ctx:           context.Background(),
		ctxCancel:     func() {},
		timeoutCancel: func() {},
		doc:           doc,
		capturer:      capturer,
		saver:         saver,
		logger:        utils.NewLogger(os.Stdout),
		trace:         defaults.Trace,
		settle:        defaults.Settle,
		pause:         defaults.Pause,
		margin:        defaults.Margin,
		speed:         defaults.Speed,
		tick:          defaults.Tick,
		instructions:  Instructions,
		active:        &atomic.Bool{},
		event:         goob.New(context.Background()),
	}
}

// Logger overrides the default log functions for tracing
func (s *Shooter) Logger(l utils.Logger) *Shooter {
	s.logger = l
	return s
}

// Trace enables/disables the log of each state transition
func (s *Shooter) Trace(enable bool) *Shooter {
	s.trace = enable
	return s
}

// Settle sets how long to wait after each scroll for the layout and paint to be stable
func (s *Shooter) Settle(d time.Duration) *Shooter {
	s.settle = d
	return s
}

// Pause sets how long to wait after hiding the progress indicator
func (s *Shooter) Pause(d time.Duration) *Shooter {
	s.pause = d
	return s
}

// AutoScroll sets the options of the auto-scroll while dragging
func (s *Shooter) AutoScroll(margin, speed float64, tick time.Duration) *Shooter {
	s.margin = margin
	s.speed = speed
	s.tick = tick
	return s
}

// Instructions sets the text shown on the overlay
func (s *Shooter) Instructions(text string) *Shooter {
	s.instructions = text
	return s
}

// Active reports whether a session is running
func (s *Shooter) Active() bool {
	return s.active.Load()
}

// Start the capture mode: let the user select a region, then capture, stitch and save it.
// Pressing Escape at any time cancels the session.
func (s *Shooter) Start() (*Result, error) {
	ss, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end(ss)

	region, err := s.selectRegion(ss)
	if err != nil {
		return nil, s.fail(ss, err)
	}

	return s.run(ss, region)
}

// Select only lets the user select a region, the page is restored before it returns.
func (s *Shooter) Select() (*Region, error) {
	ss, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end(ss)

	region, err := s.selectRegion(ss)
	if err != nil {
		return nil, s.fail(ss, err)
	}

	return region, ss.unwind()
}

// Capture the region without the user interaction
func (s *Shooter) Capture(region *Region) (*Result, error) {
	if region == nil || region.Selection.Empty() {
		return nil, newErr(ErrSelection, nil, region)
	}

	ss, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end(ss)

	return s.run(ss, region)
}

// RegionAt returns the region of the selection, the scroll target is resolved at
// the viewport point. If at is nil the window will be used.
func (s *Shooter) RegionAt(sel Selection, at *Point) (*Region, error) {
	if sel.Empty() {
		return nil, newErr(ErrSelection, nil, sel)
	}

	if at == nil {
		return &Region{Selection: sel, Target: s.doc.Window()}, nil
	}

	target, err := s.doc.ResolveScrollTarget(s.ctx, *at)
	if err != nil {
		return nil, err
	}
	return &Region{Selection: sel, Target: target}, nil
}

func (s *Shooter) begin() (*session, error) {
	if !s.active.CompareAndSwap(false, true) {
		return nil, newErr(ErrSessionActive, nil, nil)
	}
	return newSession(s.ctx, s.logger), nil
}

func (s *Shooter) end(ss *session) {
	if err := ss.close(); err != nil {
		s.logger.Println("[session]", ss.id, err)
	}
	s.active.Store(false)
}

func (s *Shooter) run(ss *session, region *Region) (*Result, error) {
	frames, err := s.capture(ss, region)
	if err != nil {
		return nil, s.fail(ss, err)
	}

	s.publish(ss, &Event{State: StateRestoring})
	if err := ss.unwind(); err != nil {
		s.logger.Println("[restore]", ss.id, err)
	}

	s.publish(ss, &Event{State: StateCompositing})
	bin, err := stitch.Stitch(frames, region.Selection.Rect())
	if err != nil {
		return nil, s.fail(ss, compositeErr(err))
	}

	name := FileName(time.Now())

	s.publish(ss, &Event{State: StateSaving, Name: name})
	if err := s.saver.Save(ss.ctx, name, bin); err != nil {
		return nil, s.fail(ss, err)
	}

	s.notice(ss, "Screenshot saved", false)
	s.publish(ss, &Event{State: StateDone, Name: name})

	return &Result{
		Name:      name,
		Selection: region.Selection,
		Frames:    len(frames),
		PNG:       bin,
	}, nil
}

// fail restores the page, tells the user and returns the error of the session
func (s *Shooter) fail(ss *session, err error) error {
	if ctxErr := ss.err(); ctxErr != nil {
		err = ctxErr
	}

	if e := ss.unwind(); e != nil {
		s.logger.Println("[restore]", ss.id, e)
	}

	state := StateFailed
	switch {
	case IsError(err, ErrCanceled):
		state = StateCanceled
		s.notice(ss, "Screenshot canceled", true)
	case IsError(err, ErrSelection):
	default:
		s.notice(ss, "Screenshot failed", true)
	}

	s.publish(ss, &Event{State: state, Err: err})
	return err
}

func (s *Shooter) notice(ss *session, text string, failed bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ss.ctx), releaseTimeout)
	defer cancel()

	if err := s.doc.Notice(ctx, text, failed); err != nil {
		s.logger.Println("[notice]", ss.id, err)
	}
}

func compositeErr(err error) error {
	var gap *stitch.GapError
	if errors.As(err, &gap) {
		return newErr(ErrCompositionGap, err, nil)
	}

	var de *stitch.DecodeError
	if errors.As(err, &de) {
		return newErr(ErrDecode, err, nil)
	}

	if errors.Is(err, stitch.ErrEmptyArea) {
		return newErr(ErrSelection, err, nil)
	}

	return err
}
