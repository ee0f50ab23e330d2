package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps raw blobs on disk under their content hash.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Put writes content once as <sha256><ext> and returns the hash and path.
func (s *Store) Put(content []byte, ext string) (string, string, error) {
	hashBytes := sha256.Sum256(content)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", err
	}

	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	rawPath := filepath.Join(s.dir, hash+ext)
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, content, 0o644); err != nil {
			return "", "", err
		}
	}
	return hash, rawPath, nil
}
