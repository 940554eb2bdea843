package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardexa/solarlog/pkg/log"
)

const (
	// LastFile holds the snapshot from the previous poll.
	LastFile = "last.csv"
	// CurrentFile holds the snapshot downloaded by this poll.
	CurrentFile = "current.csv"
)

// WriteCurrent implements Store. The file is replaced atomically so a crash
// never leaves a truncated snapshot behind.
func (f *Files) WriteCurrent(ctx context.Context, data []byte) error {
	path := filepath.Join(f.dir, CurrentFile)
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	log.Ctx(ctx).DebugContext(ctx, "wrote current snapshot", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}

// NewLines implements Store. On the very first poll there is nothing to
// compare against, so the current snapshot becomes the baseline and no lines
// are returned.
func (f *Files) NewLines(ctx context.Context) ([]string, error) {
	lastPath := filepath.Join(f.dir, LastFile)
	currentPath := filepath.Join(f.dir, CurrentFile)

	current, err := os.ReadFile(currentPath)
	if err != nil {
		return nil, &FilesystemError{Op: "read", Path: currentPath, Err: err}
	}

	last, err := os.ReadFile(lastPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Ctx(ctx).InfoContext(ctx, "no previous snapshot, saving baseline", slog.String("path", lastPath))
		return nil, writeFileAtomic(lastPath, current)
	} else if err != nil {
		return nil, &FilesystemError{Op: "read", Path: lastPath, Err: err}
	}

	lines, err := Diff(bytes.NewReader(last), bytes.NewReader(current))
	if err != nil {
		// keep the old baseline so the next poll compares again
		return nil, fmt.Errorf("failed to compare snapshots: %w", err)
	}

	if err := writeFileAtomic(lastPath, current); err != nil {
		return nil, err
	}
	return lines, nil
}

// Diff returns the lines of current that do not appear anywhere in last.
// Both snapshots are treated as sets: a line is reported at most once and a
// line seen before is never reported again, wherever it reappears. Blank
// lines are ignored and surrounding whitespace is trimmed from the result.
// Lines are returned in the order they first appear in current.
func Diff(last, current io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	if err := scanLines(last, func(line string) {
		seen[line] = struct{}{}
	}); err != nil {
		return nil, err
	}

	var lines []string
	err := scanLines(current, func(line string) {
		if _, ok := seen[line]; ok {
			return
		}
		seen[line] = struct{}{}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	})
	return lines, err
}

// scanLines calls fn for every line of r without its line ending. Lines have
// no length limit.
func scanLines(r io.Reader, fn func(string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			fn(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// writeFileAtomic writes to a temporary file first and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, filePermissions); err != nil {
		return &FilesystemError{Op: "write", Path: tempPath, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return &FilesystemError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
