// Package upload manages the short-lived files written while an uploaded image is
// being analysed. A file exists only for the duration of one request; stale files
// left behind by a crashed process are removed by Sweep.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/giygas/dermacare-api/gemini"
	"github.com/giygas/dermacare-api/interfaces"
	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/metrics"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Compile-time check to ensure Store implements the UploadSweeper interface
var _ interfaces.UploadSweeper = (*Store)(nil)

// DefaultAllowedExtensions are accepted when no list is configured
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}

// fallbackMIMEType is sent when neither content nor extension identify the image
const fallbackMIMEType = "image/jpeg"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// windowsDeviceNames cannot be used as file names on Windows
var windowsDeviceNames = []string{
	"CON", "AUX", "COM1", "COM2", "COM3", "COM4", "LPT1", "LPT2", "LPT3", "PRN", "NUL",
}

// AllowedFile reports whether the filename has an extension in the allowed set.
// Only the part after the last dot counts and the comparison ignores case.
func AllowedFile(filename string, allowed []string) bool {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return false
	}
	return slices.Contains(allowed, strings.ToLower(filename[dot+1:]))
}

// SecureFilename reduces a client supplied name to a flat ASCII file name that is safe to
// join to a directory. Non-ASCII letters are transliterated where a decomposition exists and
// dropped otherwise. The result may be empty.
func SecureFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	name = b.String()

	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name != "" {
		base := strings.ToUpper(strings.SplitN(name, ".", 2)[0])
		if slices.Contains(windowsDeviceNames, base) {
			name = "_" + name
		}
	}

	return name
}

// Store writes uploads into a single directory
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it when missing
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the upload directory
func (s *Store) Dir() string {
	return s.dir
}

// WithTempFile saves src under a unique name, runs fn with the file path and removes the
// file before returning, whether fn succeeds, fails or panics.
func (s *Store) WithTempFile(src io.Reader, filename string, fn func(path string) error) error {
	safe := SecureFilename(filename)
	if safe == "" {
		safe = "upload"
	}
	path := filepath.Join(s.dir, uuid.NewString()+"_"+safe)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Error("Failed to remove upload file", "path", path, "error", err)
		}
	}()

	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	metrics.UploadBytes.Observe(float64(n))

	return fn(path)
}

// ReadImage loads an image file for the model. The MIME type is detected from the content,
// then from the extension, and defaults to JPEG.
func ReadImage(path string) (*gemini.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	return &gemini.Image{Data: data, MIMEType: detectMIMEType(data, path)}, nil
}

func detectMIMEType(data []byte, path string) string {
	if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "image/") {
		return detected.String()
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(byExt, "image/") {
		return byExt
	}

	return fallbackMIMEType
}

// Sweep removes upload files last modified more than maxAge ago and returns how many were
// removed. Only files named by WithTempFile are considered.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isUploadName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logging.Warn("Failed to remove stale upload", "file", entry.Name(), "error", err)
			}
			continue
		}
		removed++
	}

	return removed, nil
}

// isUploadName matches "<uuid>_<name>"
func isUploadName(name string) bool {
	if len(name) < 37 || name[36] != '_' {
		return false
	}
	_, err := uuid.Parse(name[:36])
	return err == nil
}
