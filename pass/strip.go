package pass

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// decoders for event images
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
	"golang.org/x/image/draw"
)

// strip image size at 1x, scaled linearly for 2x and 3x
const (
	stripWidth  = 375
	stripHeight = 98
)

// maxStripSourcePixels bounds the decoded size of an event image
const maxStripSourcePixels = 4096 * 4096

var stripNames = []string{"strip.png", "strip@2x.png", "strip@3x.png"}

// stripImages converts an event image to strip assets. With resize
// enabled the image is center cropped to the strip aspect ratio and
// scaled to each density. With resize disabled a PNG source is shipped
// unmodified as strip.png and any other format is dropped.
func stripImages(src []byte, resize bool) ([]AssetFile, error) {
	if !resize {
		if !isPNG(src) {
			return nil, fmt.Errorf("pass: image resizing is disabled and the strip source is not a PNG")
		}
		return []AssetFile{{Name: stripNames[0], Data: src}}, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("pass: failed to decode strip source: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxStripSourcePixels {
		return nil, fmt.Errorf("pass: %s strip source of %dx%d pixels exceeds the limit of %d pixels",
			format, cfg.Width, cfg.Height, maxStripSourcePixels)
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("pass: failed to decode strip source: %w", err)
	}
	crop := cropToRatio(img.Bounds(), stripWidth, stripHeight)
	if crop.Empty() {
		return nil, fmt.Errorf("pass: %s strip source has no pixels", format)
	}
	files := make([]AssetFile, 0, len(stripNames))
	for i, name := range stripNames {
		scale := i + 1
		dst := image.NewRGBA(image.Rect(0, 0, stripWidth*scale, stripHeight*scale))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
		var buf bytes.Buffer
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("pass: failed to encode %s: %w", name, err)
		}
		files = append(files, AssetFile{Name: name, Data: buf.Bytes()})
	}
	return files, nil
}

// cropToRatio returns the largest centered rectangle of b with the
// aspect ratio w:h
func cropToRatio(b image.Rectangle, w, h int) image.Rectangle {
	bw, bh := b.Dx(), b.Dy()
	if bw == 0 || bh == 0 {
		return image.Rectangle{}
	}
	// compare bw/bh with w/h without floating point
	if bw*h > bh*w {
		cw := bh * w / h
		if cw == 0 {
			cw = 1
		}
		x0 := b.Min.X + (bw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := bw * h / w
	if ch == 0 {
		ch = 1
	}
	y0 := b.Min.Y + (bh-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}
