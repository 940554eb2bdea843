package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ardexa/solarlog/pkg/log"
	"github.com/ardexa/solarlog/pkg/types"
	"github.com/levenlabs/go-lflag"
)

const (
	// LatestFile mirrors the current day's log in every inverter directory.
	LatestFile = "latest.csv"

	dirPermissions  os.FileMode = 0755
	filePermissions os.FileMode = 0644
)

// Files implements Store on the local filesystem. Logs are written to
// <dir>/<vendor>/<inverter>/ and the snapshots live directly in dir.
type Files struct {
	dir string
}

var _ Store = (*Files)(nil)

// NewFiles returns a Files rooted at dir.
func NewFiles(dir string) *Files {
	return &Files{dir: dir}
}

func configuredFiles() *Files {
	dir := lflag.String("output-dir", "", "Directory for inverter logs, snapshots and the pid file")

	f := &Files{}
	lflag.Do(func() {
		f.dir = *dir
	})
	return f
}

// Validate checks if the storage is properly configured.
func (f *Files) Validate() error {
	if f.dir == "" {
		return errors.New("output-dir is required")
	}
	return nil
}

// Init creates the output directory.
func (f *Files) Init(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, dirPermissions); err != nil {
		return &FilesystemError{Op: "mkdir", Path: f.dir, Err: err}
	}
	return nil
}

// Dir returns the output directory.
func (f *Files) Dir() string {
	return f.dir
}

// Append implements Store. When the dated file does not exist yet the day has
// rolled over, so latest.csv is cleared before either file is written.
func (f *Files) Append(ctx context.Context, dest types.Destination, header, line string) error {
	if err := dest.Validate(); err != nil {
		return err
	}

	dir := filepath.Join(f.dir, string(dest.Vendor), dest.Inverter)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	dated := filepath.Join(dir, dest.FileName())
	latest := filepath.Join(dir, LatestFile)

	if _, err := os.Stat(dated); errors.Is(err, fs.ErrNotExist) {
		log.Ctx(ctx).InfoContext(
			ctx,
			"starting new inverter log",
			slog.String("vendor", dest.Vendor.String()),
			slog.String("inverter", dest.Inverter),
			slog.String("file", dated),
		)
		if err := os.Remove(latest); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &FilesystemError{Op: "remove", Path: latest, Err: err}
		}
	} else if err != nil {
		return &FilesystemError{Op: "stat", Path: dated, Err: err}
	}

	if err := appendLine(dated, header, line); err != nil {
		return err
	}
	return appendLine(latest, header, line)
}

// appendLine appends line to path, preceded by header if the file is empty.
func appendLine(path, header, line string) error {
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return &FilesystemError{Op: "open", Path: path, Err: err}
	}

	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return &FilesystemError{Op: "stat", Path: path, Err: err}
	}

	data := line
	if info.Size() == 0 {
		data = header + line
	}
	if _, err := fh.WriteString(data); err != nil {
		fh.Close()
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := fh.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: path, Err: err}
	}
	return nil
}
