package storage

import (
	"context"
	"fmt"

	"github.com/ardexa/solarlog/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Store persists the raw gateway snapshots and the decoded inverter logs for
// one device.
type Store interface {
	// WriteCurrent replaces the current snapshot with a fresh download.
	WriteCurrent(ctx context.Context, data []byte) error

	// NewLines returns the lines of the current snapshot that were not in the
	// previous one and then makes the current snapshot the previous one.
	NewLines(ctx context.Context) ([]string, error)

	// Append writes one decoded line to the destination's dated and latest
	// log files, writing header first to any file that is new.
	Append(ctx context.Context, dest types.Destination, header, line string) error
}

// FilesystemError is returned when a directory or file cannot be created,
// read or written. It is fatal for the current run.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// Configured sets up the file storage based on flags.
func Configured() *Files {
	f := configuredFiles()

	lflag.Do(func() {
		if err := f.Validate(); err != nil {
			panic(fmt.Sprintf("storage validation failed: %v", err))
		}
	})

	return f
}
