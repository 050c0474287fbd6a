package regionshot

import (
	"context"
	"sync"

	"github.com/go-rod/regionshot/lib/js"
	"github.com/go-rod/regionshot/lib/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/tidwall/gjson"
)

// NoticeDuration is how long a notice stays on the page, in milliseconds
const NoticeDuration = 2000

// Tab is a browser page driven through the DevTools protocol.
// It implements Document and Capturer.
type Tab struct {
	page *rod.Page

	lock    sync.Mutex
	overlay *proto.RuntimeRemoteObject
}

var (
	_ Document = &Tab{}
	_ Capturer = &Tab{}
)

// NewTab for the page
func NewTab(page *rod.Page) *Tab {
	return &Tab{page: page}
}

// Page of the tab
func (t *Tab) Page() *rod.Page {
	return t.page
}

func (t *Tab) eval(ctx context.Context, opts *rod.EvalOptions) (*proto.RuntimeRemoteObject, error) {
	return t.page.Context(ctx).Evaluate(opts)
}

func (t *Tab) call(ctx context.Context, fn *js.Function, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	return t.eval(ctx, rod.Eval(fn.Definition, args...))
}

// object evaluates fn and keeps the result as a remote object
func (t *Tab) object(ctx context.Context, fn *js.Function, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	return t.eval(ctx, rod.Eval(fn.Definition, args...).ByObject())
}

func (t *Tab) callOn(ctx context.Context, this *proto.RuntimeRemoteObject, fn *js.Function, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	return t.eval(ctx, rod.Eval(fn.Definition, args...).This(this))
}

// releaser calls fn on the object then releases the object
func (t *Tab) releaser(obj *proto.RuntimeRemoteObject, fn *js.Function) Releaser {
	return func(ctx context.Context) error {
		_, err := t.callOn(ctx, obj, fn)
		if e := t.page.Context(ctx).Release(obj); err == nil {
			err = e
		}
		return err
	}
}

// DevicePixelRatio interface
func (t *Tab) DevicePixelRatio(ctx context.Context) (float64, error) {
	res, err := t.call(ctx, js.DevicePixelRatio)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

// Window interface
func (t *Tab) Window() ScrollTarget {
	return &windowTarget{t}
}

// ResolveScrollTarget interface
func (t *Tab) ResolveScrollTarget(ctx context.Context, at Point) (ScrollTarget, error) {
	obj, err := t.object(ctx, js.ScrollParent, at.X, at.Y)
	if err != nil {
		return nil, err
	}

	if obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull || obj.ObjectID == "" {
		return t.Window(), nil
	}

	return &elementTarget{t, obj}, nil
}

// Pointer interface. The events are sent by a runtime binding.
func (t *Tab) Pointer(ctx context.Context) (<-chan PointerEvent, Releaser, error) {
	name := "regionshot_" + utils.RandString(4)

	err := proto.RuntimeAddBinding{Name: name}.Call(t.page.Context(ctx))
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan PointerEvent)
	done := make(chan struct{})

	wait := t.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != name {
			return
		}

		payload := gjson.Parse(e.Payload)
		event := PointerEvent{
			Type:           PointerEventType(payload.Get("type").String()),
			Client:         Point{X: payload.Get("x").Float(), Y: payload.Get("y").Float()},
			ViewportHeight: payload.Get("height").Float(),
		}

		select {
		case ch <- event:
		case <-ctx.Done():
		}
	})

	go func() {
		defer close(done)
		defer close(ch)
		wait()
	}()

	listener, err := t.object(ctx, js.ListenPointer, name)
	if err != nil {
		cancel()
		<-done
		return nil, nil, err
	}

	return ch, func(ctx context.Context) error {
		cancel()
		<-done

		err := t.releaser(listener, js.Remove)(ctx)
		if e := (proto.RuntimeRemoveBinding{Name: name}).Call(t.page.Context(ctx)); err == nil {
			err = e
		}
		return err
	}, nil
}

// Overlay interface
func (t *Tab) Overlay(ctx context.Context, instructions string) (Releaser, error) {
	obj, err := t.object(ctx, js.Overlay, instructions)
	if err != nil {
		return nil, err
	}

	t.lock.Lock()
	t.overlay = obj
	t.lock.Unlock()

	remove := t.releaser(obj, js.RemoveOverlay)

	return func(ctx context.Context) error {
		t.lock.Lock()
		t.overlay = nil
		t.lock.Unlock()

		return remove(ctx)
	}, nil
}

// DrawSelection interface
func (t *Tab) DrawSelection(ctx context.Context, r Rect) error {
	t.lock.Lock()
	overlay := t.overlay
	t.lock.Unlock()

	if overlay == nil {
		return nil
	}

	_, err := t.callOn(ctx, overlay, js.DrawSelection, r.X, r.Y, r.Width, r.Height)
	return err
}

// HideFixed interface
func (t *Tab) HideFixed(ctx context.Context) (Releaser, error) {
	obj, err := t.object(ctx, js.HideFixed)
	if err != nil {
		return nil, err
	}
	return t.releaser(obj, js.RestoreFixed), nil
}

// Indicator interface
func (t *Tab) Indicator(ctx context.Context, text string) (Indicator, Releaser, error) {
	obj, err := t.object(ctx, js.Indicator, text)
	if err != nil {
		return nil, nil, err
	}
	return &tabIndicator{t, obj}, t.releaser(obj, js.Remove), nil
}

// Notice interface
func (t *Tab) Notice(ctx context.Context, text string, failed bool) error {
	_, err := t.call(ctx, js.Notice, text, failed, NoticeDuration)
	return err
}

// CaptureVisibleArea interface
func (t *Tab) CaptureVisibleArea(ctx context.Context) ([]byte, error) {
	return t.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

type tabIndicator struct {
	tab *Tab
	obj *proto.RuntimeRemoteObject
}

func (i *tabIndicator) Show(ctx context.Context, text string) error {
	_, err := i.tab.callOn(ctx, i.obj, js.ShowIndicator, text)
	return err
}

func (i *tabIndicator) Hide(ctx context.Context) error {
	_, err := i.tab.callOn(ctx, i.obj, js.HideIndicator)
	return err
}

type windowTarget struct {
	tab *Tab
}

func (w *windowTarget) ScrollTop(ctx context.Context) (float64, error) {
	res, err := w.tab.call(ctx, js.WindowScrollTop)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (w *windowTarget) ScrollTo(ctx context.Context, y float64) error {
	_, err := w.tab.call(ctx, js.WindowScrollTo, y)
	return err
}

func (w *windowTarget) ScrollBy(ctx context.Context, dy float64) error {
	_, err := w.tab.call(ctx, js.WindowScrollBy, dy)
	return err
}

func (w *windowTarget) ClientHeight(ctx context.Context) (float64, error) {
	res, err := w.tab.call(ctx, js.WindowClientHeight)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (w *windowTarget) IsWindow() bool {
	return true
}

type elementTarget struct {
	tab *Tab
	obj *proto.RuntimeRemoteObject
}

func (e *elementTarget) ScrollTop(ctx context.Context) (float64, error) {
	res, err := e.tab.callOn(ctx, e.obj, js.ElementScrollTop)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (e *elementTarget) ScrollTo(ctx context.Context, y float64) error {
	_, err := e.tab.callOn(ctx, e.obj, js.ElementScrollTo, y)
	return err
}

func (e *elementTarget) ScrollBy(ctx context.Context, dy float64) error {
	_, err := e.tab.callOn(ctx, e.obj, js.ElementScrollBy, dy)
	return err
}

func (e *elementTarget) ClientHeight(ctx context.Context) (float64, error) {
	res, err := e.tab.callOn(ctx, e.obj, js.ElementClientHeight)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (e *elementTarget) IsWindow() bool {
	return false
}
