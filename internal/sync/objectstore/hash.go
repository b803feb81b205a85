package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// HashFile returns the hex SHA-256 of a file's content and its size.
func HashFile(filePath string) (string, int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to calculate hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ContentKey builds prefix/{hash[0:2]}/{hash[2:4]}/{hash}{ext}.
// Identical files always map to the same key.
func ContentKey(prefix, hash, ext string) string {
	if len(hash) < 4 {
		return path.Join(strings.Trim(prefix, "/"), hash+strings.ToLower(ext))
	}
	return path.Join(strings.Trim(prefix, "/"), hash[0:2], hash[2:4], hash+strings.ToLower(ext))
}
