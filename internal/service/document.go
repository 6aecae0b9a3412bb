package service

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"patientportal/internal/apperr"
	"patientportal/internal/model"
	"patientportal/internal/repository"
	"patientportal/internal/storage"
)

// Client-facing messages shared with the HTTP layer.
const (
	MsgNoFile       = "No file provided"
	MsgFileNotFound = "File not found on server"
)

// DocumentFile is an opened document ready to be streamed. The caller owns Content.
type DocumentFile struct {
	Document model.Document
	Content  io.ReadCloser
	Size     int64
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload validates and stores the file, then records its metadata. If the
	// metadata insert fails, the stored file is removed again.
	Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*model.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Open returns a document together with its stored content.
	Open(ctx context.Context, id string) (*DocumentFile, error)

	// Delete removes a document's file (if still present) and then its record.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	writer *storage.Writer
	store  storage.Storage
	repo   repository.DocumentRepository
	logger *log.Logger
}

// NewDocumentService constructs a new DocumentService. writer must write to store.
func NewDocumentService(writer *storage.Writer, store storage.Storage, repo repository.DocumentRepository, logger *log.Logger) DocumentService {
	return &documentService{
		writer: writer,
		store:  store,
		repo:   repo,
		logger: logger.With("component", "document_service"),
	}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*model.Document, error) {
	const op = "documents.upload"
	if r == nil {
		return nil, apperr.New(apperr.KindValidation, op, MsgNoFile)
	}

	stored, err := s.writer.Save(ctx, filename, contentType, r, size)
	if err != nil {
		return nil, err
	}

	doc, err := s.repo.Create(ctx, filename, stored.Key, stored.Size)
	if err != nil {
		// Compensate: the record does not exist, so the file must not either.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), stored.Key); delErr != nil {
			s.logger.Error("upload rollback failed",
				"filepath", stored.Key,
				"error", err,
				"rollback_error", delErr,
			)
			return nil, &apperr.Error{
				Kind:    apperr.KindOf(err),
				Op:      op,
				Message: "rollback delete failed: " + delErr.Error(),
				Err:     err,
			}
		}
		s.logger.Warn("upload rolled back", "filepath", stored.Key, "error", err)
		return nil, err
	}

	s.logger.Info("document uploaded", "id", doc.ID, "filepath", doc.Filepath, "filesize", doc.Filesize)
	return doc, nil
}

func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx)
}

// Get returns a document by ID. An ID that is not a UUID cannot name a
// document and is answered as not found without a store round trip. Other
// UUID spellings (urn:uuid:, braces, no dashes) are looked up in canonical form.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "documents.get", repository.MsgDocumentNotFound)
	}
	return s.repo.FindByID(ctx, parsed.String())
}

func (s *documentService) Open(ctx context.Context, id string) (*DocumentFile, error) {
	const op = "documents.open"

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, info, err := s.store.Open(ctx, doc.Filepath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.Wrap(apperr.KindFileMissing, op, err, MsgFileNotFound)
		}
		return nil, apperr.Wrap(apperr.KindFilesystem, op, err, "failed to open file")
	}

	return &DocumentFile{Document: *doc, Content: rc, Size: info.Size}, nil
}

// Delete removes the file if it is still present, then the record.
// If the record delete fails after the file is gone, the error is
// apperr.KindPartialDelete so callers can tell the store is now pointing at
// nothing.
func (s *documentService) Delete(ctx context.Context, id string) error {
	const op = "documents.delete"

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx, doc.Filepath)
	if err != nil {
		return apperr.Wrap(apperr.KindFilesystem, op, err, "failed to check file")
	}
	if exists {
		if err := s.store.Delete(ctx, doc.Filepath); err != nil {
			return apperr.Wrap(apperr.KindFilesystem, op, err, "failed to remove file")
		}
	} else {
		s.logger.Warn("document file already missing", "id", doc.ID, "filepath", doc.Filepath)
	}

	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		s.logger.Error("document file removed but record delete failed",
			"id", doc.ID,
			"filepath", doc.Filepath,
			"error", err,
		)
		return apperr.Wrap(apperr.KindPartialDelete, op, err, "file removed but record delete failed")
	}

	s.logger.Info("document deleted", "id", doc.ID, "filepath", doc.Filepath)
	return nil
}
