package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const logFilePrefix = "dermacare-"

// RotatingWriter writes log lines to one file per ISO week, starting a numbered
// continuation file when the current one reaches maxFileSize.
type RotatingWriter struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu       sync.Mutex
	file     *os.File
	week     string
	sequence int
	size     int64

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// NewRotatingWriter creates the log directory and opens the file for the current week
func NewRotatingWriter(logDir string, retentionWeeks int, maxFileSize int64) (*RotatingWriter, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	rw := &RotatingWriter{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	rw.mu.Lock()
	err := rw.openLocked(weekKey(rw.now()))
	rw.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return rw, nil
}

// weekKey returns the week key in YYYY-Www format (ISO week)
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rw *RotatingWriter) fileName(week string, sequence int) string {
	if sequence == 0 {
		return fmt.Sprintf("%s%s.log", logFilePrefix, week)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, sequence)
}

// openLocked opens the newest non-full file for week (caller must hold mu)
func (rw *RotatingWriter) openLocked(week string) error {
	if rw.file != nil {
		_ = rw.file.Close()
		rw.file = nil
	}

	if week != rw.week {
		rw.week = week
		rw.sequence = 0
	}

	for {
		path := filepath.Join(rw.logDir, rw.fileName(rw.week, rw.sequence))
		info, err := os.Stat(path)
		if err == nil && rw.maxFileSize > 0 && info.Size() >= rw.maxFileSize {
			rw.sequence++
			continue
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}

		rw.file = file
		rw.size = 0
		if info != nil {
			rw.size = info.Size()
		}
		return nil
	}
}

// Write implements io.Writer
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	week := weekKey(rw.now())
	full := rw.maxFileSize > 0 && rw.size > 0 && rw.size+int64(len(p)) > rw.maxFileSize

	if week != rw.week || full || rw.file == nil {
		if full && week == rw.week {
			rw.sequence++
		}
		if err := rw.openLocked(week); err != nil {
			return 0, err
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// cleanup removes log files whose modification time is older than the retention period
func (rw *RotatingWriter) cleanup() (int, error) {
	entries, err := os.ReadDir(rw.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rw.now().Add(-rw.retention)
	removed := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		rw.mu.Lock()
		current := rw.file != nil && filepath.Base(rw.file.Name()) == name
		rw.mu.Unlock()
		if current {
			continue
		}

		if err := os.Remove(filepath.Join(rw.logDir, name)); err == nil {
			removed++
		}
	}

	return removed, nil
}

// startCleanup runs cleanup once a day until Close is called
func (rw *RotatingWriter) startCleanup() {
	rw.done = make(chan struct{})
	go func() {
		defer close(rw.done)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-rw.stop:
				return
			case <-ticker.C:
				if removed, err := rw.cleanup(); err != nil {
					// Console only, the file handler may be the one failing
					fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
				} else if removed > 0 {
					fmt.Printf("Cleaned up %d old log files\n", removed)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and closes the current file
func (rw *RotatingWriter) Close() error {
	select {
	case <-rw.stop:
	default:
		close(rw.stop)
	}

	if rw.done != nil {
		select {
		case <-rw.done:
		case <-time.After(time.Second):
		}
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}
