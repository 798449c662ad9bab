// Package sink delivers encoded capture files: to the native filesystem,
// to any hackpadfs filesystem, or to a browser download.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hack-pad/hackpadfs"
)

// ErrNoDeliver is returned by a DownloadSink without a Deliver function.
var ErrNoDeliver = errors.New("sink: download sink has no deliver function")

// Sink stores the bytes of one output file.
//
// Write returns the location the bytes were stored at. It runs on a worker
// goroutine and may block on I/O.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// ResolvePath returns p, or "<unix seconds>.<ext>" when p is empty.
func ResolvePath(p, ext string, now time.Time) string {
	if p != "" {
		return p
	}
	return fmt.Sprintf("%d.%s", now.Unix(), ext)
}

// FileSink writes to the native filesystem. Relative names are resolved
// against Dir; an empty Dir is the working directory. Parent directories
// are created as needed.
type FileSink struct {
	Dir string
}

// Write implements Sink.
func (s FileSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := name
	if !filepath.IsAbs(full) && s.Dir != "" {
		full = filepath.Join(s.Dir, full)
	}
	if dir := filepath.Dir(full); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("sink: %w", err)
		}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil { //nolint:gosec // G306: capture output is meant to be shared
		return "", fmt.Errorf("sink: %w", err)
	}
	return full, nil
}

// FSSink writes to a hackpadfs filesystem, such as an in-memory FS, an
// IndexedDB-backed FS in browsers or a mount of several.
type FSSink struct {
	FS hackpadfs.FS

	// Dir prefixes relative names.
	Dir string
}

// Write implements Sink. Names are cleaned into slash-separated paths
// relative to the filesystem root.
func (s FSSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := fsPath(path.Join(filepath.ToSlash(s.Dir), filepath.ToSlash(name)))
	if dir := path.Dir(full); dir != "." {
		if err := hackpadfs.MkdirAll(s.FS, dir, 0o755); err != nil {
			return "", fmt.Errorf("sink: %w", err)
		}
	}
	if err := hackpadfs.WriteFullFile(s.FS, full, data, 0o644); err != nil {
		return "", fmt.Errorf("sink: %w", err)
	}
	return full, nil
}

// fsPath turns p into a valid io/fs path.
func fsPath(p string) string {
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}

// DownloadSink hands files to a browser download. Only the base name of
// the requested path is kept.
type DownloadSink struct {
	Deliver func(name string, data []byte) error
}

// Write implements Sink.
func (s DownloadSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s.Deliver == nil {
		return "", ErrNoDeliver
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	base := path.Base(filepath.ToSlash(name))
	if err := s.Deliver(base, data); err != nil {
		return "", fmt.Errorf("sink: download %s: %w", base, err)
	}
	return base, nil
}

var (
	_ Sink = FileSink{}
	_ Sink = FSSink{}
	_ Sink = DownloadSink{}
)
