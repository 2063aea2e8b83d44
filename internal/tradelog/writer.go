package tradelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// Writer appends records to the CSV log under an exclusive file lock so the
// worker and the dashboard can share one file safely.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Create truncates the log at path (fresh per run) and writes the header.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create trade log: %w", err)
	}
	w := &Writer{path: path, file: file}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Open attaches to an existing log for appending, creating it with a header
// when absent. Used by the dashboard for deposit rows.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	w := &Writer{path: path, file: file}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat trade log: %w", err)
	}
	if info.Size() == 0 {
		if err := w.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	cw := csv.NewWriter(w.file)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Append writes one record under an exclusive lock.
func (w *Writer) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("trade log closed")
	}
	fd := int(w.file.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock trade log: %w", err)
	}
	defer syscall.Flock(fd, syscall.LOCK_UN)

	if _, err := w.file.Seek(0, 2); err != nil {
		return fmt.Errorf("seek trade log: %w", err)
	}
	cw := csv.NewWriter(w.file)
	if err := cw.Write(rec.row()); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush row: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (w *Writer) Path() string { return w.path }

// Close releases the underlying file handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
