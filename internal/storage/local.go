package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

// localStorage keeps objects as files on an afero filesystem.
// Production uses afero.NewOsFs; tests use afero.NewMemMapFs.
type localStorage struct {
	fs   afero.Fs
	root string
}

// NewLocal returns a Storage writing under root on fs.
func NewLocal(fs afero.Fs, root string) Storage {
	return &localStorage{fs: fs, root: root}
}

func (l *localStorage) EnsureRoot(_ context.Context) error {
	if err := l.fs.MkdirAll(l.root, 0o755); err != nil {
		return fmt.Errorf("create storage root %s: %w", l.root, err)
	}
	return nil
}

// Put writes through a temp file in the destination directory and renames it
// into place, so a reader never sees a partially written object.
func (l *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	dir := path.Dir(key)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := afero.TempFile(l.fs, dir, ".tmp-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = l.fs.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return ObjectInfo{}, fmt.Errorf("write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("close temp file: %w", err)
	}
	if opt.Size >= 0 && written != opt.Size {
		return ObjectInfo{}, fmt.Errorf("size mismatch: expected %d bytes, got %d", opt.Size, written)
	}

	if err := l.fs.Rename(tmpPath, key); err != nil {
		return ObjectInfo{}, fmt.Errorf("rename temp file: %w", err)
	}
	success = true

	info := ObjectInfo{Key: key, Size: written, ContentType: opt.ContentType}
	if st, err := l.fs.Stat(key); err == nil {
		info.LastModified = st.ModTime()
	}
	return info, nil
}

func (l *localStorage) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := l.fs.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open file: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat file: %w", err)
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s is a directory", ErrObjectNotFound, key)
	}

	return f, ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime()}, nil
}

func (l *localStorage) Exists(_ context.Context, key string) (bool, error) {
	return afero.Exists(l.fs, key)
}

func (l *localStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
