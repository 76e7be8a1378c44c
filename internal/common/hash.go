package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashChunkSize is the read size used when streaming file bytes through
// the digest; keeps memory flat for multi-hundred-MB scans.
const hashChunkSize = 8192

// HashFile computes the hex SHA-256 digest of a file's bytes by streaming
// the file in fixed-size chunks. Identical bytes always produce the same
// digest regardless of path or metadata, which is what makes the digest
// usable as a content-addressed index identifier.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file for hashing: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
