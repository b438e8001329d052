package fileStore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"github.com/gabriel-vasile/mimetype"
)

const maxFilenameLength = 255

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s.-]`)

var ErrUnsafeName = errors.New("upload name is not sanitised")

// Store keeps uploads on local disk, one directory per owner
type Store struct {
	root   string
	logger *logger_i.Logger
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Store{root: abs, logger: logger_i.NewLogger("File Store")}, nil
}

// SanitizeFilename strips anything that could escape the upload dir
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "..", "")
	name = strings.TrimSpace(name)
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	return name
}

// UploadName is the sanitised filename with id appended, cut so the id always survives
func UploadName(filename, id string) string {
	suffix := "_" + SanitizeFilename(id)
	base := SanitizeFilename(filename)
	if room := maxFilenameLength - len(suffix); len(base) > room {
		base = base[:max(room, 0)]
	}
	return base + suffix
}

// Write stores data under the owner and returns the path it landed on.
// The name must already be sanitised and must not exist yet; nothing is ever overwritten.
func (s *Store) Write(ownerId string, name string, data []byte) (string, error) {
	if name == "" || SanitizeFilename(name) != name {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	dir := filepath.Join(s.root, SanitizeFilename(ownerId))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating owner dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("creating upload: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	s.logger.Debug("Stored upload", "path", path, "size", len(data))
	return path, nil
}

func (s *Store) Open(path string) (io.ReadCloser, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, coreErrors.ErrFileNotFound
	}
	return f, err
}

// Remove is a no-op for files that are already gone
func (s *Store) Remove(path string) error {
	if err := s.contains(path); err != nil {
		return err
	}
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}

func (s *Store) contains(path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the upload dir", path)
	}
	return nil
}

// DetectMime sniffs the content type from the leading bytes
func DetectMime(data []byte) string {
	return mimetype.Detect(data).String()
}
