package utils

import (
	"fmt"
	"net/http"
)

// MJPEGBoundary between the frames written by WriteMJPEGFrame
const MJPEGBoundary = "frame"

// MJPEGContentType of the response that WriteMJPEGFrame writes to
const MJPEGContentType = "multipart/x-mixed-replace; boundary=" + MJPEGBoundary

// WriteMJPEGFrame writes a single jpeg frame of a MJPEG stream then flushes it
func WriteMJPEGFrame(w http.ResponseWriter, frame []byte, flusher http.Flusher) error {
	parts := [][]byte{
		[]byte("--" + MJPEGBoundary + "\r\n"),
		[]byte("Content-Type: image/jpeg\r\n"),
		[]byte(fmt.Sprintf("Content-Length: %d\r\n\r\n", len(frame))),
		frame,
		[]byte("\r\n"),
	}

	for _, part := range parts {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}

	flusher.Flush()
	return nil
}
