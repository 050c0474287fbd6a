package regionshot

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-rod/regionshot/lib/utils"
)

// PointerEventType type
type PointerEventType string

const (
	// PointerDown type
	PointerDown PointerEventType = "down"
	// PointerMove type
	PointerMove PointerEventType = "move"
	// PointerUp type
	PointerUp PointerEventType = "up"
	// PointerCancel type, such as the Escape key
	PointerCancel PointerEventType = "cancel"
)

// PointerEvent from the page
type PointerEvent struct {
	Type PointerEventType

	// Client position in the viewport
	Client Point

	// ViewportHeight when the event happens
	ViewportHeight float64
}

// Indicator is the progress indicator in the page
type Indicator interface {
	// Show the indicator, update the text if it's not empty
	Show(ctx context.Context, text string) error
	// Hide the indicator so that it won't be captured
	Hide(ctx context.Context) error
}

// Releaser undoes a change to the page
type Releaser func(ctx context.Context) error

// Document is the page a capture session drives
type Document interface {
	Navigator

	// DevicePixelRatio between the CSS pixel and the captured bitmap pixel
	DevicePixelRatio(ctx context.Context) (float64, error)

	// Pointer streams the drag and the Escape key. The channel is closed after stop is called.
	Pointer(ctx context.Context) (events <-chan PointerEvent, stop Releaser, err error)

	// Overlay covers the viewport and shows the instructions
	Overlay(ctx context.Context, instructions string) (remove Releaser, err error)

	// DrawSelection renders the live rectangle of the overlay, r is in viewport CSS pixels
	DrawSelection(ctx context.Context, r Rect) error

	// HideFixed hides every sticky or fixed element of the page
	HideFixed(ctx context.Context) (restore Releaser, err error)

	// Indicator creates the progress indicator
	Indicator(ctx context.Context, text string) (ind Indicator, remove Releaser, err error)

	// Notice shows a toast
	Notice(ctx context.Context, text string, failed bool) error
}

// Capturer captures the currently visible area of the page
type Capturer interface {
	CaptureVisibleArea(ctx context.Context) ([]byte, error)
}

// Saver hands the encoded image to the storage
type Saver interface {
	Save(ctx context.Context, name string, bin []byte) error
}

// Dir saves files into the directory
type Dir string

var _ Saver = Dir("")

// Save interface
func (d Dir) Save(ctx context.Context, name string, bin []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return utils.OutputFile(d.Path(name), bin)
}

// Path of the file name inside the dir
func (d Dir) Path(name string) string {
	return filepath.Join(string(d), name)
}

// FileName returns the default file name of a screenshot taken at t
func FileName(t time.Time) string {
	return utils.TimestampName("screenshot", ".png", t)
}
