package pass

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// defaultAsset is an image every pass ships with
type defaultAsset struct {
	Name          string
	Width, Height int
}

// defaultAssets lists the icon and logo images at each pixel density
var defaultAssets = []defaultAsset{
	{"icon.png", 29, 29},
	{"icon@2x.png", 58, 58},
	{"icon@3x.png", 87, 87},
	{"logo.png", 160, 50},
	{"logo@2x.png", 320, 100},
}

// placeholderColor fills generated icons and logos
var placeholderColor = color.RGBA{R: 17, G: 17, B: 17, A: 255}

// LoadDefaultAssets returns the default icon and logo images. Each one
// is read from dir when present there, or generated as a solid
// placeholder otherwise, so the returned set is always complete.
func LoadDefaultAssets(dir string) ([]AssetFile, error) {
	assets := make([]AssetFile, 0, len(defaultAssets))
	for _, a := range defaultAssets {
		if dir != "" {
			data, err := os.ReadFile(filepath.Join(dir, a.Name))
			switch {
			case err == nil && isPNG(data):
				assets = append(assets, AssetFile{Name: a.Name, Data: data})
				continue
			case err == nil:
				log.Warnf("pass: asset %q in %q is not a PNG, using a placeholder", a.Name, dir)
			case !errors.Is(err, fs.ErrNotExist):
				return nil, fmt.Errorf("pass: failed to read asset %q: %w", a.Name, err)
			}
		}
		data, err := placeholderPNG(a.Width, a.Height)
		if err != nil {
			return nil, err
		}
		assets = append(assets, AssetFile{Name: a.Name, Data: data})
	}
	return assets, nil
}

// placeholderPNG encodes a solid image of the given size
func placeholderPNG(width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, placeholderColor)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("pass: failed to encode %dx%d placeholder: %w", width, height, err)
	}
	return buf.Bytes(), nil
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngMagic)
}
