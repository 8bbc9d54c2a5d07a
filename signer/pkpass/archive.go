package pkpass

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/evently/walletpass/pass"
)

// ContentType is the media type of a pass archive
const ContentType = "application/vnd.apple.pkpass"

// Pack writes a pass archive. The files, usually pass.json followed by
// the assets, come first in the order given, then the manifest and the
// signature. Members are flat and deflated at the best compression.
func Pack(files []pass.AssetFile, manifest, signature []byte) ([]byte, error) {
	for _, f := range files {
		if err := checkMemberName(f.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
		}
	}
	members := make([]pass.AssetFile, 0, len(files)+2)
	members = append(members, files...)
	members = append(members,
		pass.AssetFile{Name: ManifestName, Data: manifest},
		pass.AssetFile{Name: SignatureName, Data: signature},
	)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeArchive(pw, members))
	}()
	output, err := io.ReadAll(pr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
	}
	return output, nil
}

func writeArchive(out io.Writer, members []pass.AssetFile) error {
	w := zip.NewWriter(out)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	for _, m := range members {
		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:   m.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return fmt.Errorf("failed to add %q to archive: %w", m.Name, err)
		}
		if _, err = fw.Write(m.Data); err != nil {
			return fmt.Errorf("failed to write %q to archive: %w", m.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}

// Unpack returns the members of a pass archive in archive order
func Unpack(archive []byte) ([]pass.AssetFile, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to open archive: %w", err)
	}
	files := make([]pass.AssetFile, 0, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("pkpass: failed to open %q: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("pkpass: failed to read %q: %w", f.Name, err)
		}
		files = append(files, pass.AssetFile{Name: f.Name, Data: data})
	}
	return files, nil
}
