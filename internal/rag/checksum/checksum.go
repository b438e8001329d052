package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
)

// DigestLength is the hex length of a sha256 digest.
const DigestLength = sha256.Size * 2

func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestOfFile streams the file in fixed size blocks and returns the same value Digest would on its full contents.
// An empty file is reported as ErrEmptyFile rather than the digest of nothing.
func DigestOfFile(path string) (string, error) {
	digest, _, err := FileStats(path)
	return digest, err
}

// FileStats returns the digest and byte size of the file at path.
func FileStats(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, fmt.Errorf("%w: %s", coreErrors.ErrFileNotFound, path)
		}
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return DigestOfReader(f)
}

func DigestOfReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, config.ChecksumBlockSize)
	size, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", size, fmt.Errorf("read: %w", err)
	}
	if size == 0 {
		return "", 0, coreErrors.ErrEmptyFile
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Verify compares case-insensitively against the digest of data.
func Verify(data []byte, expected string) bool {
	return strings.EqualFold(Digest(data), strings.TrimSpace(expected))
}

func VerifyFile(path string, expected string) (bool, error) {
	digest, err := DigestOfFile(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(digest, strings.TrimSpace(expected)), nil
}
