// Package export rasterises rendered mind maps with headless Chrome.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/chromedp/chromedp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Supported reports whether format can be produced by Image.
func Supported(format string) bool {
	switch strings.ToLower(format) {
	case "png", "jpg", "jpeg":
		return true
	}
	return false
}

// Image screenshots the svg document and writes it to w as PNG or JPEG.
func Image(ctx context.Context, svg string, format string, w io.Writer) error {
	if !Supported(format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	shot, err := screenshot(ctx, svg)
	if err != nil {
		return err
	}
	return encode(shot, format, w)
}

func screenshot(ctx context.Context, svg string) ([]byte, error) {
	dataURI := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Headless)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible(`svg`, chromedp.ByQuery),
		chromedp.Screenshot(`svg`, &buf, chromedp.ByQuery),
	}
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}
	if len(buf) == 0 {
		return nil, errors.New("screenshot buffer is empty, screenshot failed")
	}
	return buf, nil
}

// encode writes a PNG screenshot as the requested format.
func encode(shot []byte, format string, w io.Writer) error {
	switch strings.ToLower(format) {
	case "png":
		if _, err := w.Write(shot); err != nil {
			return fmt.Errorf("failed to write PNG screenshot data: %w", err)
		}
		return nil
	case "jpg", "jpeg":
		img, err := png.Decode(bytes.NewReader(shot))
		if err != nil {
			return fmt.Errorf("failed to decode PNG screenshot: %w", err)
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
