// Package fakepage is an in-memory page for testing capture sessions without a browser.
// Every device pixel of the content is colored by its document row, so a stitched
// image can be verified pixel by pixel with Pixel.
package fakepage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/utils"
)

// ErrCapture is returned by the capture that is told to fail
var ErrCapture = errors.New("fake capture failed")

// Pixel of the content at the device column x and the device row of the document
func Pixel(x, row int) color.RGBA {
	return color.RGBA{R: uint8(row % 256), G: uint8(row / 256 % 256), B: uint8(x % 256), A: 255}
}

// Notice shown by the page
type Notice struct {
	Text   string
	Failed bool
}

// Page is a fake regionshot.Document and regionshot.Capturer
type Page struct {
	// DPR device pixel ratio
	DPR float64
	// Width and Height of the viewport in CSS pixels
	Width, Height float64
	// Content height in CSS pixels
	Content float64
	// Pane makes the content live in a scrollable element that fills the viewport,
	// the window itself doesn't scroll.
	Pane bool

	// BeforeCapture is called with the context of the capture before the nth capture,
	// 1-based. A returned error fails the capture.
	BeforeCapture func(ctx context.Context, n int) error

	lock      sync.Mutex
	input     chan regionshot.PointerEvent
	top       float64
	captures  int
	listening bool

	overlay    bool
	instructs  string
	drawn      []regionshot.Rect
	fixed      bool
	indicators int
	nextID     int
	shown      map[int]bool
	texts      []string
	notices    []Notice
	violations []string
}

var (
	_ regionshot.Document = &Page{}
	_ regionshot.Capturer = &Page{}
)

// New page, the viewport is width x height, the content is content tall, all in CSS pixels
func New(dpr, width, height, content float64) *Page {
	return &Page{
		DPR:     dpr,
		Width:   width,
		Height:  height,
		Content: content,
		input:   make(chan regionshot.PointerEvent),
		shown:   map[int]bool{},
	}
}

// FailAt makes the nth capture fail
func (p *Page) FailAt(n int) *Page {
	p.BeforeCapture = func(_ context.Context, i int) error {
		if i == n {
			return ErrCapture
		}
		return nil
	}
	return p
}

// Send a pointer event, it blocks until a session receives it
func (p *Page) Send(t regionshot.PointerEventType, x, y float64) {
	p.input <- regionshot.PointerEvent{Type: t, Client: regionshot.Point{X: x, Y: y}, ViewportHeight: p.Height}
}

// Drag from a viewport point to another one
func (p *Page) Drag(x0, y0, x1, y1 float64) {
	p.Send(regionshot.PointerDown, x0, y0)
	p.Send(regionshot.PointerMove, x1, y1)
	p.Send(regionshot.PointerUp, x1, y1)
}

// Escape key
func (p *Page) Escape() {
	p.Send(regionshot.PointerCancel, 0, 0)
}

// SetScrollTop of the scroll target of the content
func (p *Page) SetScrollTop(y float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.top = p.clamp(y)
}

// GetScrollTop of the scroll target of the content
func (p *Page) GetScrollTop() float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.top
}

// Captures is the number of captures so far
func (p *Page) Captures() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.captures
}

// Clean reports whether nothing added or changed by a session is left on the page
func (p *Page) Clean() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return !p.overlay && !p.fixed && p.indicators == 0 && !p.listening
}

// OverlayShown reports whether the overlay is on the page
func (p *Page) OverlayShown() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.overlay
}

// Instructions shown on the overlay
func (p *Page) Instructions() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.instructs
}

// Drawn returns the live rects drawn on the overlay
func (p *Page) Drawn() []regionshot.Rect {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]regionshot.Rect{}, p.drawn...)
}

// Texts of the indicator in order
func (p *Page) Texts() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string{}, p.texts...)
}

// Notices shown so far
func (p *Page) Notices() []Notice {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]Notice{}, p.notices...)
}

// Violations are the captures that include the indicator or the fixed elements
func (p *Page) Violations() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string{}, p.violations...)
}

func (p *Page) clamp(y float64) float64 {
	return math.Max(0, math.Min(y, p.Content-p.Height))
}

// DevicePixelRatio interface
func (p *Page) DevicePixelRatio(ctx context.Context) (float64, error) {
	return p.DPR, ctx.Err()
}

// Window interface
func (p *Page) Window() regionshot.ScrollTarget {
	return &target{p, true}
}

// ResolveScrollTarget interface
func (p *Page) ResolveScrollTarget(ctx context.Context, _ regionshot.Point) (regionshot.ScrollTarget, error) {
	if p.Pane {
		return &target{p, false}, ctx.Err()
	}
	return p.Window(), ctx.Err()
}

// Pointer interface
func (p *Page) Pointer(ctx context.Context) (<-chan regionshot.PointerEvent, regionshot.Releaser, error) {
	p.lock.Lock()
	p.listening = true
	p.lock.Unlock()

	out := make(chan regionshot.PointerEvent)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case e := <-p.input:
				select {
				case out <- e:
				case <-stop:
					return
				}
			}
		}
	}()

	var once sync.Once
	return out, func(context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
			p.lock.Lock()
			p.listening = false
			p.lock.Unlock()
		})
		return nil
	}, ctx.Err()
}

// Overlay interface
func (p *Page) Overlay(ctx context.Context, instructions string) (regionshot.Releaser, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.overlay = true
	p.instructs = instructions
	return func(context.Context) error {
		p.lock.Lock()
		defer p.lock.Unlock()
		p.overlay = false
		return nil
	}, ctx.Err()
}

// DrawSelection interface
func (p *Page) DrawSelection(ctx context.Context, r regionshot.Rect) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.drawn = append(p.drawn, r)
	return ctx.Err()
}

// HideFixed interface
func (p *Page) HideFixed(ctx context.Context) (regionshot.Releaser, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.fixed = true
	return func(context.Context) error {
		p.lock.Lock()
		defer p.lock.Unlock()
		p.fixed = false
		return nil
	}, ctx.Err()
}

// Indicator interface
func (p *Page) Indicator(ctx context.Context, text string) (regionshot.Indicator, regionshot.Releaser, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.indicators++
	p.nextID++
	id := p.nextID
	p.shown[id] = true
	p.texts = append(p.texts, text)

	ind := &indicator{p, id}
	return ind, func(context.Context) error {
		p.lock.Lock()
		defer p.lock.Unlock()
		delete(p.shown, id)
		p.indicators--
		return nil
	}, ctx.Err()
}

// Notice interface
func (p *Page) Notice(ctx context.Context, text string, failed bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.notices = append(p.notices, Notice{text, failed})
	return ctx.Err()
}

// CaptureVisibleArea renders the viewport at the current scroll offset as png
func (p *Page) CaptureVisibleArea(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.lock.Lock()
	p.captures++
	n := p.captures
	hook := p.BeforeCapture
	p.lock.Unlock()

	if hook != nil {
		if err := hook(ctx, n); err != nil {
			return nil, err
		}
	}

	p.lock.Lock()
	for _, shown := range p.shown {
		if shown {
			p.violations = append(p.violations, fmt.Sprintf("capture %d includes the indicator", n))
		}
	}
	if !p.fixed {
		p.violations = append(p.violations, fmt.Sprintf("capture %d includes the fixed elements", n))
	}
	top := int(math.Round(p.top * p.DPR))
	p.lock.Unlock()

	w := int(math.Round(p.Width * p.DPR))
	h := int(math.Round(p.Height * p.DPR))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, Pixel(x, top+y))
		}
	}

	return utils.EncodePNG(img)
}

type indicator struct {
	page *Page
	id   int
}

func (i *indicator) Show(ctx context.Context, text string) error {
	i.page.lock.Lock()
	defer i.page.lock.Unlock()
	if _, ok := i.page.shown[i.id]; ok {
		i.page.shown[i.id] = true
	}
	if text != "" {
		i.page.texts = append(i.page.texts, text)
	}
	return ctx.Err()
}

func (i *indicator) Hide(ctx context.Context) error {
	i.page.lock.Lock()
	defer i.page.lock.Unlock()
	if _, ok := i.page.shown[i.id]; ok {
		i.page.shown[i.id] = false
	}
	return ctx.Err()
}

// target is the window or the pane, only the one that holds the content scrolls
type target struct {
	page   *Page
	window bool
}

func (t *target) content() bool {
	return t.window != t.page.Pane
}

func (t *target) ScrollTop(ctx context.Context) (float64, error) {
	if !t.content() {
		return 0, ctx.Err()
	}
	return t.page.GetScrollTop(), ctx.Err()
}

func (t *target) ScrollTo(ctx context.Context, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.content() {
		t.page.SetScrollTop(y)
	}
	return nil
}

func (t *target) ScrollBy(ctx context.Context, dy float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.content() {
		t.page.lock.Lock()
		t.page.top = t.page.clamp(t.page.top + dy)
		t.page.lock.Unlock()
	}
	return nil
}

func (t *target) ClientHeight(ctx context.Context) (float64, error) {
	return t.page.Height, ctx.Err()
}

func (t *target) IsWindow() bool {
	return t.window
}

// Store is an in-memory regionshot.Saver
type Store struct {
	lock  sync.Mutex
	files map[string][]byte

	// Err is returned by Save if not nil
	Err error
}

// NewStore instance
func NewStore() *Store {
	return &Store{files: map[string][]byte{}}
}

// Save interface
func (s *Store) Save(ctx context.Context, name string, bin []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.files[name] = bin
	return nil
}

// Get the saved file
func (s *Store) Get(name string) ([]byte, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	bin, ok := s.files[name]
	return bin, ok
}

// Len of the saved files
func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.files)
}
