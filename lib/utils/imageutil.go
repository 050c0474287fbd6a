package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/go-rod/rod/lib/proto"
)

// ImgOption is the option for image processing.
type ImgOption struct {
	Quality int
}

// ImgProcessor is the interface for image processing.
type ImgProcessor interface {
	Encode(img image.Image, opt *ImgOption) ([]byte, error)
	Decode(file io.Reader) (image.Image, error)
}

type jpegProcessor struct{}

func (p jpegProcessor) Encode(img image.Image, opt *ImgOption) ([]byte, error) {
	var buf bytes.Buffer
	var jpegOpt *jpeg.Options
	if opt != nil {
		jpegOpt = &jpeg.Options{Quality: opt.Quality}
	}
	err := jpeg.Encode(&buf, img, jpegOpt)
	return buf.Bytes(), err
}

func (p jpegProcessor) Decode(file io.Reader) (image.Image, error) {
	return jpeg.Decode(file)
}

type pngProcessor struct{}

func (p pngProcessor) Encode(img image.Image, _ *ImgOption) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	err := enc.Encode(&buf, img)
	return buf.Bytes(), err
}

func (p pngProcessor) Decode(file io.Reader) (image.Image, error) {
	return png.Decode(file)
}

// NewImgProcessor create a ImgProcessor by the format.
func NewImgProcessor(format proto.PageCaptureScreenshotFormat) (ImgProcessor, error) {
	switch format {
	case proto.PageCaptureScreenshotFormatJpeg:
		return &jpegProcessor{}, nil
	case "", proto.PageCaptureScreenshotFormatPng:
		return &pngProcessor{}, nil
	default:
		return nil, fmt.Errorf("not support format: %v", format)
	}
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

// DetectImgFormat by the magic bytes of the encoded image.
// Returns an empty format if it's neither png nor jpeg.
func DetectImgFormat(bin []byte) proto.PageCaptureScreenshotFormat {
	switch {
	case bytes.HasPrefix(bin, pngMagic):
		return proto.PageCaptureScreenshotFormatPng
	case bytes.HasPrefix(bin, jpegMagic):
		return proto.PageCaptureScreenshotFormatJpeg
	default:
		return ""
	}
}

// DecodeImg decodes a png or jpeg image.
func DecodeImg(bin []byte) (image.Image, error) {
	format := DetectImgFormat(bin)
	if format == "" {
		return nil, fmt.Errorf("unknown image format, %d bytes", len(bin))
	}

	processor, err := NewImgProcessor(format)
	if err != nil {
		return nil, err
	}

	return processor.Decode(bytes.NewReader(bin))
}

// DecodeImgSize returns the dimensions of a png or jpeg image without decoding its pixels.
func DecodeImgSize(bin []byte) (image.Point, error) {
	var cfg image.Config
	var err error

	switch DetectImgFormat(bin) {
	case proto.PageCaptureScreenshotFormatPng:
		cfg, err = png.DecodeConfig(bytes.NewReader(bin))
	case proto.PageCaptureScreenshotFormatJpeg:
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(bin))
	default:
		return image.Point{}, fmt.Errorf("unknown image format, %d bytes", len(bin))
	}

	return image.Pt(cfg.Width, cfg.Height), err
}

// EncodePNG encodes the image losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	return pngProcessor{}.Encode(img, nil)
}

// ToJPEG re-encodes a png or jpeg image as jpeg, useful for MJPEG streams.
func ToJPEG(bin []byte, quality int) ([]byte, error) {
	if DetectImgFormat(bin) == proto.PageCaptureScreenshotFormatJpeg {
		return bin, nil
	}

	img, err := DecodeImg(bin)
	if err != nil {
		return nil, err
	}

	return jpegProcessor{}.Encode(img, &ImgOption{Quality: quality})
}
