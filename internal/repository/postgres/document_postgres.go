package postgres

import (
	"context"
	"database/sql"
	"errors"

	"patientportal/internal/apperr"
	"patientportal/internal/model"
	"patientportal/internal/repository"
)

const dbErrorMessage = "Database error"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record,
// including the id and created_at assigned by the database.
func (r *DocumentPostgres) Create(ctx context.Context, filename, filepath string, filesize int64) (*model.Document, error) {
	const q = `
		INSERT INTO documents (filename, filepath, filesize)
		VALUES ($1, $2, $3)
		RETURNING id, filename, filepath, filesize, created_at
	`
	row := r.db.QueryRowContext(ctx, q, filename, filepath, filesize)
	out, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindStore, "documents.insert", dbErrorMessage+": failed to create document record")
		}
		return nil, apperr.Wrap(apperr.KindStore, "documents.insert", err, dbErrorMessage)
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT id, filename, filepath, filesize, created_at
		FROM documents
		WHERE id = $1
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "documents.select", repository.MsgDocumentNotFound)
		}
		return nil, apperr.Wrap(apperr.KindStore, "documents.select", err, dbErrorMessage)
	}
	return d, nil
}

// List returns all documents, newest first.
func (r *DocumentPostgres) List(ctx context.Context) ([]model.Document, error) {
	const q = `
		SELECT id, filename, filepath, filesize, created_at
		FROM documents
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "documents.list", err, dbErrorMessage)
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStore, "documents.list", err, dbErrorMessage)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "documents.list", err, dbErrorMessage)
	}
	return items, nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return apperr.Wrap(apperr.KindStore, "documents.delete", err, dbErrorMessage)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.Filepath,
		&d.Filesize,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
