package regionshot

import "context"

// ScrollTarget is the window or one scrollable element. All values are in CSS pixels.
type ScrollTarget interface {
	// ScrollTop is the current vertical scroll offset
	ScrollTop(ctx context.Context) (float64, error)

	// ScrollTo sets the vertical scroll offset, the browser may clamp it
	ScrollTo(ctx context.Context, y float64) error

	// ScrollBy changes the vertical scroll offset by dy
	ScrollBy(ctx context.Context, dy float64) error

	// ClientHeight is the height of the visible part
	ClientHeight(ctx context.Context) (float64, error)

	// IsWindow reports whether the target is the window
	IsWindow() bool
}

// Navigator resolves the scroll target of a selection
type Navigator interface {
	// ResolveScrollTarget walks from the element under the viewport point up to
	// the body and returns the first ancestor that scrolls vertically and has
	// content to scroll, otherwise the window.
	ResolveScrollTarget(ctx context.Context, at Point) (ScrollTarget, error)

	// Window target
	Window() ScrollTarget
}

// documentY converts a viewport y to the document y of the target
func documentY(ctx context.Context, target ScrollTarget, viewportY float64) (float64, error) {
	top, err := target.ScrollTop(ctx)
	if err != nil {
		return 0, err
	}
	return viewportY + top, nil
}
