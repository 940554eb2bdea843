package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/levenlabs/go-lflag"
)

// Configured registers the log file flags. When --log-dir is set the default
// logger writes to stdout and to a daily rotated file in that directory. The
// returned closer must be closed on exit and is a no-op when no directory is
// configured.
func Configured() io.Closer {
	dir := lflag.String("log-dir", "", "Directory for rotated JSON log files (empty logs to stdout only)")
	maxAge := lflag.Duration("log-max-age", 7*24*time.Hour, "How long rotated log files are kept")

	var c multiCloser
	lflag.Do(func() {
		if *dir == "" {
			return
		}
		rl, err := RotatingWriter(*dir, *maxAge)
		if err != nil {
			panic(fmt.Sprintf("log file init failed: %v", err))
		}
		c = append(c, rl)
		SetOutput(io.MultiWriter(os.Stdout, rl))
	})
	return &c
}

// RotatingWriter returns a writer that starts a new file every day under dir
// and keeps solarlog.log linked to the current one.
func RotatingWriter(dir string, maxAge time.Duration) (io.WriteCloser, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return rotatelogs.New(
		filepath.Join(dir, "solarlog.%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(dir, "solarlog.log")),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(maxAge),
	)
}

type multiCloser []io.Closer

func (m *multiCloser) Close() error {
	var first error
	for _, c := range *m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
