package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"patientportal/internal/apperr"
	"patientportal/internal/logging"
	"patientportal/internal/model"
	"patientportal/internal/repository/memory"
	repoMocks "patientportal/internal/repository/mocks"
	"patientportal/internal/storage"
	storeMocks "patientportal/internal/storage/mocks"
)

var rules = storage.Rules{
	MaxBytes:            10 * 1024 * 1024,
	AllowedExtensions:   []string{".pdf"},
	AllowedContentTypes: []string{"application/pdf"},
}

type fixture struct {
	svc  DocumentService
	fs   afero.Fs
	repo *memory.DocumentMemory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := storage.NewLocal(fs, "uploads")
	require.NoError(t, store.EnsureRoot(context.Background()))
	repo := memory.NewDocumentMemory()
	return fixture{
		svc:  NewDocumentService(storage.NewWriter(store, "uploads", rules), store, repo, logging.Nop()),
		fs:   fs,
		repo: repo,
	}
}

func (f fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := afero.ReadDir(f.fs, "uploads")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func withMocks(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) DocumentService {
	return NewDocumentService(storage.NewWriter(mStore, "uploads", rules), mStore, mRepo, logging.Nop())
}

func putEchoesKey() func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo {
	return func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		return storage.ObjectInfo{Key: key, Size: opt.Size}
	}
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payload := []byte("%PDF-1.7 patient report")

	doc, err := f.svc.Upload(ctx, bytes.NewReader(payload), "report.pdf", "application/pdf", int64(len(payload)))
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Equal(t, int64(len(payload)), doc.Filesize)
	assert.True(t, strings.HasPrefix(doc.Filepath, "uploads/"))
	assert.True(t, strings.HasSuffix(doc.Filepath, "_report.pdf"))

	stored, err := f.repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, stored.ID)

	data, err := afero.ReadFile(f.fs, doc.Filepath)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Len(t, f.files(t), 1)
}

func TestDocumentService_UploadValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		r           io.Reader
		filename    string
		contentType string
		size        int64
		wantMsg     string
	}{
		{"nil reader", nil, "a.pdf", "application/pdf", 1, "No file provided"},
		{"bad extension", strings.NewReader("x"), "a.docx", "application/pdf", 1, "Only PDF files are allowed"},
		{"bad content type", strings.NewReader("x"), "a.pdf", "text/plain", 1, "Invalid file type. Only PDF files are allowed"},
		{"empty", strings.NewReader(""), "a.pdf", "application/pdf", 0, "File is empty"},
		{"too large", strings.NewReader("x"), "a.pdf", "application/pdf", 10*1024*1024 + 1, "File size exceeds maximum limit of 10MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			doc, err := f.svc.Upload(ctx, tt.r, tt.filename, tt.contentType, tt.size)

			assert.Nil(t, doc)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
			assert.EqualError(t, err, tt.wantMsg)
			assert.Empty(t, f.files(t), "no file written")
			docs, _ := f.repo.List(ctx)
			assert.Empty(t, docs, "no record created")
		})
	}
}

func TestDocumentService_UploadFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantKind   apperr.Kind
		wantErrMsg string
	}{
		{
			name: "storage error",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("disk full"))
			},
			wantKind:   apperr.KindFilesystem,
			wantErrMsg: "failed to store file: disk full",
		},
		{
			name: "repository error with successful rollback",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, "_a.pdf")
				}), mock.Anything, mock.Anything).Return(putEchoesKey(), nil)
				mRepo.On("Create", ctx, "a.pdf", mock.Anything, int64(5)).
					Return(nil, apperr.Wrap(apperr.KindStore, "documents.insert", errors.New("db fail"), "Database error"))
				mStore.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
					return strings.HasSuffix(key, "_a.pdf")
				})).Return(nil)
			},
			wantKind:   apperr.KindStore,
			wantErrMsg: "Database error: db fail",
		},
		{
			name: "repository error with failed rollback",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(putEchoesKey(), nil)
				mRepo.On("Create", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, apperr.Wrap(apperr.KindStore, "documents.insert", errors.New("db fail"), "Database error"))
				mStore.On("Delete", mock.Anything, mock.Anything).Return(errors.New("delete fail"))
			},
			wantKind:   apperr.KindStore,
			wantErrMsg: "rollback delete failed: delete fail: Database error: db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			tt.setupMocks(mStore, mRepo)
			svc := withMocks(mStore, mRepo)

			doc, err := svc.Upload(ctx, strings.NewReader("hello"), "a.pdf", "application/pdf", 5)

			assert.Nil(t, doc)
			assert.True(t, apperr.IsKind(err, tt.wantKind), "got kind %v", apperr.KindOf(err))
			assert.EqualError(t, err, tt.wantErrMsg)
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_UploadRollbackRemovesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := storage.NewLocal(fs, "uploads")
	require.NoError(t, store.EnsureRoot(context.Background()))
	mRepo := new(repoMocks.MockDocumentRepository)
	mRepo.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperr.New(apperr.KindStore, "documents.insert", "Database error: failed to create document record"))
	svc := NewDocumentService(storage.NewWriter(store, "uploads", rules), store, mRepo, logging.Nop())

	_, err := svc.Upload(context.Background(), strings.NewReader("hello"), "a.pdf", "application/pdf", 5)

	assert.True(t, apperr.IsKind(err, apperr.KindStore))
	entries, err := afero.ReadDir(fs, "uploads")
	require.NoError(t, err)
	assert.Empty(t, entries, "orphan file must be removed")
}

func TestDocumentService_UploadSameNameTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.svc.Upload(ctx, strings.NewReader("one"), "scan.pdf", "application/pdf", 3)
	require.NoError(t, err)
	b, err := f.svc.Upload(ctx, strings.NewReader("two"), "scan.pdf", "application/pdf", 3)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Filepath, b.Filepath)
	assert.Len(t, f.files(t), 2)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.svc.Upload(ctx, strings.NewReader("a"), "a.pdf", "application/pdf", 1)
		require.NoError(t, err)
		b, err := f.svc.Upload(ctx, strings.NewReader("b"), "b.pdf", "application/pdf", 1)
		require.NoError(t, err)

		docs, err := f.svc.List(ctx)

		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, b.ID, docs[0].ID)
		assert.Equal(t, a.ID, docs[1].ID)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("List", ctx).Return(nil, apperr.Wrap(apperr.KindStore, "documents.list", errors.New("db fail"), "Database error"))
		svc := withMocks(new(storeMocks.MockStorage), mRepo)

		docs, err := svc.List(ctx)

		assert.Nil(t, docs)
		assert.True(t, apperr.IsKind(err, apperr.KindStore))
		mRepo.AssertExpectations(t)
	})
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	validID := uuid.NewString()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantKind   apperr.Kind
	}{
		{
			name: "happy path",
			id:   validID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, validID).Return(&model.Document{ID: validID}, nil)
			},
		},
		{
			name: "urn form is looked up canonically",
			id:   "urn:uuid:" + validID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, validID).Return(&model.Document{ID: validID}, nil)
			},
		},
		{
			name: "braced upper-case form is looked up canonically",
			id:   "{" + strings.ToUpper(validID) + "}",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, validID).Return(&model.Document{ID: validID}, nil)
			},
		},
		{
			name:       "empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantKind:   apperr.KindNotFound,
		},
		{
			name:       "malformed id never reaches the store",
			id:         "not-a-uuid",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantKind:   apperr.KindNotFound,
		},
		{
			name: "not found",
			id:   validID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, validID).Return(nil, apperr.New(apperr.KindNotFound, "documents.select", "Document not found"))
			},
			wantKind: apperr.KindNotFound,
		},
		{
			name: "store error",
			id:   validID,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, validID).Return(nil, apperr.Wrap(apperr.KindStore, "documents.select", errors.New("db fail"), "Database error"))
			},
			wantKind: apperr.KindStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			tt.setupMocks(mRepo)
			svc := withMocks(new(storeMocks.MockStorage), mRepo)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantKind != apperr.KindUnknown {
				assert.True(t, apperr.IsKind(err, tt.wantKind))
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, validID, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		f := newFixture(t)
		payload := []byte("%PDF-1.5\nbinary\x00\x01\x02")
		doc, err := f.svc.Upload(ctx, bytes.NewReader(payload), "x.pdf", "application/pdf", int64(len(payload)))
		require.NoError(t, err)

		file, err := f.svc.Open(ctx, doc.ID)
		require.NoError(t, err)
		defer file.Content.Close()

		data, err := io.ReadAll(file.Content)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
		assert.Equal(t, int64(len(payload)), file.Size)
		assert.Equal(t, doc.ID, file.Document.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)

		file, err := f.svc.Open(ctx, uuid.NewString())

		assert.Nil(t, file)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		assert.EqualError(t, err, "Document not found")
	})

	t.Run("file removed out of band", func(t *testing.T) {
		f := newFixture(t)
		doc, err := f.svc.Upload(ctx, strings.NewReader("x"), "x.pdf", "application/pdf", 1)
		require.NoError(t, err)
		require.NoError(t, f.fs.Remove(doc.Filepath))

		file, err := f.svc.Open(ctx, doc.ID)

		assert.Nil(t, file)
		assert.True(t, apperr.IsKind(err, apperr.KindFileMissing))
		assert.Equal(t, "File not found on server", apperr.MessageOf(err))
	})

	t.Run("storage error", func(t *testing.T) {
		id := uuid.NewString()
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, id).Return(&model.Document{ID: id, Filepath: "uploads/p"}, nil)
		mStore.On("Open", ctx, "uploads/p").Return(nil, storage.ObjectInfo{}, errors.New("permission denied"))

		file, err := withMocks(mStore, mRepo).Open(ctx, id)

		assert.Nil(t, file)
		assert.True(t, apperr.IsKind(err, apperr.KindFilesystem))
		mStore.AssertExpectations(t)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()
	doc := &model.Document{ID: id, Filepath: "uploads/path"}

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantKind   apperr.Kind
	}{
		{
			name: "happy path",
			id:   id,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(doc, nil)
				mStore.On("Exists", ctx, "uploads/path").Return(true, nil)
				mStore.On("Delete", ctx, "uploads/path").Return(nil)
				mRepo.On("Delete", ctx, id).Return(nil)
			},
		},
		{
			name: "file already gone skips storage delete",
			id:   id,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(doc, nil)
				mStore.On("Exists", ctx, "uploads/path").Return(false, nil)
				mRepo.On("Delete", ctx, id).Return(nil)
			},
		},
		{
			name:       "malformed id",
			id:         "nope",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantKind:   apperr.KindNotFound,
		},
		{
			name: "not found",
			id:   id,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(nil, apperr.New(apperr.KindNotFound, "documents.select", "Document not found"))
			},
			wantKind: apperr.KindNotFound,
		},
		{
			name: "existence check error keeps file and record",
			id:   id,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(doc, nil)
				mStore.On("Exists", ctx, "uploads/path").Return(false, errors.New("permission denied"))
			},
			wantKind: apperr.KindFilesystem,
		},
		{
			name: "storage delete error keeps the record",
			id:   id,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(doc, nil)
				mStore.On("Exists", ctx, "uploads/path").Return(true, nil)
				mStore.On("Delete", ctx, "uploads/path").Return(errors.New("read-only file system"))
			},
			wantKind: apperr.KindFilesystem,
		},
		{
			name: "record delete error after file removal",
			id:   id,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, id).Return(doc, nil)
				mStore.On("Exists", ctx, "uploads/path").Return(true, nil)
				mStore.On("Delete", ctx, "uploads/path").Return(nil)
				mRepo.On("Delete", ctx, id).Return(apperr.Wrap(apperr.KindStore, "documents.delete", errors.New("db fail"), "Database error"))
			},
			wantKind: apperr.KindPartialDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			tt.setupMocks(mStore, mRepo)

			err := withMocks(mStore, mRepo).Delete(ctx, tt.id)

			if tt.wantKind != apperr.KindUnknown {
				assert.True(t, apperr.IsKind(err, tt.wantKind), "got kind %v", apperr.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_DeleteAlternateIDSpelling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, err := f.svc.Upload(ctx, strings.NewReader("x"), "x.pdf", "application/pdf", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "urn:uuid:"+doc.ID))

	_, err = f.repo.FindByID(ctx, doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Empty(t, f.files(t))
}

func TestDocumentService_DeleteEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, err := f.svc.Upload(ctx, strings.NewReader("x"), "x.pdf", "application/pdf", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, doc.ID))

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, f.files(t))
	_, err = f.svc.Open(ctx, doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDocumentService_DeleteWithFileAlreadyGone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, err := f.svc.Upload(ctx, strings.NewReader("x"), "x.pdf", "application/pdf", 1)
	require.NoError(t, err)
	require.NoError(t, f.fs.Remove(doc.Filepath))

	assert.NoError(t, f.svc.Delete(ctx, doc.ID))

	_, err = f.repo.FindByID(ctx, doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
