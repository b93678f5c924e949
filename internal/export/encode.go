// Package export encodes rendered boards as PNG, JPEG or PDF data URLs and
// serves them over HTTP.
package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// DefaultQuality matches the browser default for lossy canvas exports.
const DefaultQuality = 0.92

// ErrUnknownFormat is returned for formats other than png, jpeg and pdf.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is a supported export encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
)

// MIMEType returns the media type of the encoding.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	}
	return "image/png"
}

// Ext returns the conventional file extension.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// ParseFormat accepts short names ("png", "jpg") and MIME types
// ("image/jpeg"). Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png", "image/png":
		return FormatPNG, nil
	case "jpg", "jpeg", "image/jpeg", "image/jpg":
		return FormatJPEG, nil
	case "pdf", "application/pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Encode writes img in format f. quality in (0, 1] applies to JPEG only;
// out-of-range values use DefaultQuality.
func Encode(img image.Image, f Format, quality float64) ([]byte, error) {
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	switch f {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case FormatJPEG:
		if err := encodeJPEG(&buf, img, quality); err != nil {
			return nil, err
		}
	case FormatPDF:
		if err := encodePDF(&buf, img); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return buf.Bytes(), nil
}

// DataURL encodes img and wraps it in a base64 data URL.
func DataURL(img image.Image, format string, quality float64) (string, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	data, err := Encode(img, f, quality)
	if err != nil {
		return "", err
	}
	return wrapDataURL(f, data), nil
}

func wrapDataURL(f Format, data []byte) string {
	return "data:" + f.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// encodeJPEG flattens transparency onto white first; JPEG has no alpha.
func encodeJPEG(buf *bytes.Buffer, img image.Image, quality float64) error {
	opts := &jpeg.Options{Quality: max(1, min(100, int(quality*100+0.5)))}
	if err := jpeg.Encode(buf, flatten(img), opts); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

// encodePDF places img on a single page sized to it, one point per pixel.
func encodePDF(buf *bytes.Buffer, img image.Image) error {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return fmt.Errorf("encode pdf: empty image")
	}

	// Flattened pages are opaque, so the PNG carries no alpha channel.
	var page bytes.Buffer
	if err := png.Encode(&page, flatten(img)); err != nil {
		return fmt.Errorf("encode pdf page: %w", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("board", opts, &page)
	pdf.ImageOptions("board", 0, 0, w, h, false, opts, 0, "")

	if err := pdf.Output(buf); err != nil {
		return fmt.Errorf("encode pdf: %w", err)
	}
	return nil
}
