// Package regionshot captures a drag-selected region of a web page, including
// the part below the fold of a scrolling container, as one stitched png.
//
// The page is scrolled step by step, each visible viewport is captured and the
// captures are aligned by their document offset and composited row by row.
package regionshot

import (
	"fmt"
	"image"
	"math"
)

// Point in CSS pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect in CSS pixels of the document
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the rect spanned by two corners in any order
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Scale the rect by the device pixel ratio
func (r Rect) Scale(dpr float64) Selection {
	return Selection{
		X:      r.X * dpr,
		Y:      r.Y * dpr,
		Width:  r.Width * dpr,
		Height: r.Height * dpr,
	}
}

// Selection is the selected region in device pixels of the document.
// The coordinates are relative to the whole scrollable content, not the viewport.
type Selection struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom edge of the selection
func (s Selection) Bottom() float64 {
	return s.Y + s.Height
}

// Empty reports whether the selection has no pixels to capture
func (s Selection) Empty() bool {
	r := s.Rect()
	return r.Dx() <= 0 || r.Dy() <= 0
}

// Rect of the output image in device pixels, each value is rounded
func (s Selection) Rect() image.Rectangle {
	x, y := int(math.Round(s.X)), int(math.Round(s.Y))
	return image.Rect(x, y, x+int(math.Round(s.Width)), y+int(math.Round(s.Height)))
}

// CSS converts the selection back to CSS pixels
func (s Selection) CSS(dpr float64) Rect {
	return Rect{X: s.X / dpr, Y: s.Y / dpr, Width: s.Width / dpr, Height: s.Height / dpr}
}

func (s Selection) String() string {
	return fmt.Sprintf("%gx%g+%g+%g", s.Width, s.Height, s.X, s.Y)
}

// Region is everything a capture session needs to know about what to capture
type Region struct {
	Selection Selection

	// Target is the element or window to scroll while capturing
	Target ScrollTarget
}
