package pkpass

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/evently/walletpass/pass"
)

const (
	// ManifestName is the archive member listing the digest of every other file
	ManifestName = "manifest.json"

	// SignatureName is the archive member holding the detached signature
	// of the manifest
	SignatureName = "signature"
)

// Manifest maps archive member names to the hex SHA-1 of their content
type Manifest map[string]string

// MakeManifest computes the manifest of the files of a pass and returns
// its canonical JSON serialization. The output only depends on the
// names and contents of the files, not on their order.
func MakeManifest(files []pass.AssetFile) ([]byte, error) {
	m := make(Manifest, len(files))
	for _, f := range files {
		if err := checkMemberName(f.Name); err != nil {
			return nil, err
		}
		if _, ok := m[f.Name]; ok {
			return nil, fmt.Errorf("pkpass: duplicate file %q in manifest", f.Name)
		}
		h := sha1.Sum(f.Data)
		m[f.Name] = hex.EncodeToString(h[:])
	}
	return m.Marshal()
}

// Marshal returns the canonical JSON of the manifest, keys sorted
func (m Manifest) Marshal() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to marshal manifest: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to canonicalize manifest: %w", err)
	}
	return canonical, nil
}

// ParseManifest decodes a manifest.json
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("pkpass: failed to parse manifest: %w", err)
	}
	return m, nil
}

// checkMemberName rejects names that are not flat file names or that
// collide with the manifest and signature
func checkMemberName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("pkpass: invalid file name %q", name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("pkpass: file name %q is not flat", name)
	case name == ManifestName, name == SignatureName:
		return fmt.Errorf("pkpass: file name %q is reserved", name)
	}
	return nil
}
