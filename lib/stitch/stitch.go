// Package stitch composites the visible-viewport captures of a scrolled page
// into one image of the selected document area.
//
// Every output row is written at most once: frames are visited from the
// smallest document offset to the largest and the first frame that covers a
// row wins, later frames never overwrite it.
package stitch

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sort"

	"github.com/go-rod/regionshot/lib/utils"
)

// ErrEmptyArea is returned when the area to composite has no pixels
var ErrEmptyArea = errors.New("stitch: empty area")

// Frame is one capture of the visible viewport
type Frame struct {
	// Y is the document offset of the first row of the frame, in device pixels
	Y int

	// Data is the encoded bitmap, png or jpeg
	Data []byte
}

// DecodeError of a frame
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stitch: failed to decode frame %d: %v", e.Index, e.Err)
}

// Unwrap ...
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// GapError means some rows of the area are covered by no frame
type GapError struct {
	// First unfilled row, relative to the top of the area
	First int
	// Count of unfilled rows
	Count int
}

func (e *GapError) Error() string {
	return fmt.Sprintf("stitch: %d rows are not covered by any frame, first one is row %d", e.Count, e.First)
}

type decoded struct {
	y   int
	img image.Image
}

// Composite the frames into an image of the area. The area is in device pixels
// of the document.
func Composite(frames []Frame, area image.Rectangle) (*image.RGBA, error) {
	if area.Empty() {
		return nil, ErrEmptyArea
	}

	list, err := decode(frames)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].y < list[j].y
	})

	width, height := area.Dx(), area.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	filled := make([]bool, height)

	for _, f := range list {
		b := f.img.Bounds()

		// rows of the area covered by the frame
		from := max(0, f.y-area.Min.Y)
		to := min(height, f.y+b.Dy()-area.Min.Y)

		for py := from; py < to; py++ {
			if filled[py] {
				continue
			}

			sy := area.Min.Y + py - f.y
			draw.Draw(
				dst,
				image.Rect(0, py, width, py+1),
				f.img,
				image.Pt(b.Min.X+area.Min.X, b.Min.Y+sy),
				draw.Src,
			)
			filled[py] = true
		}
	}

	if gap := findGap(filled); gap != nil {
		return nil, gap
	}

	return dst, nil
}

// Stitch composites the frames and encodes the result as png
func Stitch(frames []Frame, area image.Rectangle) ([]byte, error) {
	img, err := Composite(frames, area)
	if err != nil {
		return nil, err
	}
	return utils.EncodePNG(img)
}

func decode(frames []Frame) ([]decoded, error) {
	list := make([]decoded, len(frames))
	errs := make([]error, len(frames))

	actions := make([]func(), len(frames))
	for i, f := range frames {
		i, f := i, f
		actions[i] = func() {
			img, err := utils.DecodeImg(f.Data)
			if err != nil {
				errs[i] = &DecodeError{Index: i, Err: err}
				return
			}
			list[i] = decoded{y: f.Y, img: img}
		}
	}
	utils.All(actions...)()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return list, nil
}

func findGap(filled []bool) *GapError {
	var gap *GapError
	for py, ok := range filled {
		if ok {
			continue
		}
		if gap == nil {
			gap = &GapError{First: py}
		}
		gap.Count++
	}
	return gap
}
