package pass

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultAssetsGeneratesPlaceholders(t *testing.T) {
	t.Parallel()

	assets, err := LoadDefaultAssets("")
	if err != nil {
		t.Fatalf("failed to load default assets: %v", err)
	}
	if len(assets) != len(defaultAssets) {
		t.Fatalf("expected %d assets, got %d", len(defaultAssets), len(assets))
	}
	for i, a := range assets {
		if a.Name != defaultAssets[i].Name {
			t.Fatalf("expected asset %s, got %s", defaultAssets[i].Name, a.Name)
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(a.Data))
		if err != nil || format != "png" {
			t.Fatalf("expected %s to be a png: %v", a.Name, err)
		}
		if cfg.Width != defaultAssets[i].Width || cfg.Height != defaultAssets[i].Height {
			t.Fatalf("unexpected %s size %dx%d", a.Name, cfg.Width, cfg.Height)
		}
	}
}

func TestLoadDefaultAssetsFromDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	custom, err := placeholderPNG(7, 7)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "icon.png"), custom, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}

	assets, err := LoadDefaultAssets(dir)
	if err != nil {
		t.Fatalf("failed to load assets: %v", err)
	}
	byName := make(map[string][]byte)
	for _, a := range assets {
		byName[a.Name] = a.Data
	}
	if !bytes.Equal(byName["icon.png"], custom) {
		t.Fatal("expected icon.png to be read from the directory")
	}
	if !isPNG(byName["logo.png"]) {
		t.Fatal("expected a placeholder to replace the non-png logo")
	}
	if len(byName) != len(defaultAssets) {
		t.Fatalf("expected a complete asset set, got %d", len(byName))
	}
}
