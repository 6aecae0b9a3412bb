package repository

import (
	"context"

	"patientportal/internal/model"
)

// DocumentRepository is the metadata store for uploaded documents.
// No business logic here, strictly persistence operations.
//
// Implementations wrap transport and database failures in apperr.KindStore errors
// and report a missing record with apperr.KindNotFound.
type DocumentRepository interface {
	// Create inserts a record; the store assigns ID and CreatedAt.
	Create(ctx context.Context, filename, filepath string, filesize int64) (*model.Document, error)

	// FindByID returns the document with the given ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns every document, newest first. An empty store yields an empty slice.
	List(ctx context.Context) ([]model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// MsgDocumentNotFound is the client-facing message for a missing record.
const MsgDocumentNotFound = "Document not found"
