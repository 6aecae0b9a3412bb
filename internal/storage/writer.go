package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"patientportal/internal/apperr"
)

// Rules are the upload acceptance criteria.
type Rules struct {
	MaxBytes            int64
	AllowedExtensions   []string
	AllowedContentTypes []string
}

// StoredFile describes a successfully written upload.
type StoredFile struct {
	Key  string
	Size int64
}

// Writer validates uploads and writes accepted ones under a unique key.
type Writer struct {
	store    Storage
	root     string
	rules    Rules
	newToken func() string
}

// NewWriter returns a Writer storing accepted uploads under root.
func NewWriter(store Storage, root string, rules Rules) *Writer {
	return &Writer{
		store:    store,
		root:     root,
		rules:    rules,
		newToken: uuid.NewString,
	}
}

// Validate checks an upload against the rules without touching storage.
// The extension check is case-insensitive; the content type is the client-declared one.
func (w *Writer) Validate(filename, contentType string, size int64) error {
	const op = "storage.validate"

	ext := strings.ToLower(filepath.Ext(filename))
	if !contains(w.rules.AllowedExtensions, ext, true) {
		return apperr.New(apperr.KindValidation, op, "Only PDF files are allowed")
	}
	if !contains(w.rules.AllowedContentTypes, contentType, false) {
		return apperr.New(apperr.KindValidation, op, "Invalid file type. Only PDF files are allowed")
	}
	if size > w.rules.MaxBytes {
		return apperr.New(apperr.KindValidation, op,
			fmt.Sprintf("File size exceeds maximum limit of %gMB", float64(w.rules.MaxBytes)/(1024*1024)))
	}
	if size <= 0 {
		return apperr.New(apperr.KindValidation, op, "File is empty")
	}
	return nil
}

// Save validates the upload and writes it to storage.
// Exactly one object is created on success and none on failure.
func (w *Writer) Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (*StoredFile, error) {
	if err := w.Validate(filename, contentType, size); err != nil {
		return nil, err
	}

	key := w.KeyFor(filename)
	info, err := w.store.Put(ctx, key, io.LimitReader(r, size+1), PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": filename},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFilesystem, "storage.put", err, "failed to store file")
	}
	return &StoredFile{Key: info.Key, Size: info.Size}, nil
}

// KeyFor builds a fresh storage key: <root>/<token>_<base name>.
// Directory components in the client name are dropped so keys stay under root.
func (w *Writer) KeyFor(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	return path.Join(w.root, w.newToken()+"_"+base)
}

func contains(set []string, v string, fold bool) bool {
	for _, s := range set {
		if s == v || (fold && strings.EqualFold(s, v)) {
			return true
		}
	}
	return false
}
