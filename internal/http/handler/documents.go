package handler

import (
	"mime"

	"github.com/gofiber/fiber/v2"

	"patientportal/internal/model"
	"patientportal/internal/service"
)

const pdfContentType = "application/pdf"

type uploadResponse struct {
	model.Document
	Message string `json:"message"`
}

type listResponse struct {
	Documents []model.Document `json:"documents"`
	Count     int              `json:"count"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// UploadDocument accepts a single PDF in the multipart field "file".
//
// @Summary Upload a PDF document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file, at most 10MB"
// @Success 201 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/upload [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", service.MsgNoFile)
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), f, fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size)
		if err != nil {
			return writeAppError(c, err, "Failed to upload file: ")
		}

		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			Document: *doc,
			Message:  "File uploaded successfully",
		})
	}
}

// ListDocuments returns every document, newest first.
//
// @Summary List documents
// @Tags documents
// @Produce json
// @Success 200 {object} listResponse
// @Failure 500 {object} errorPayload
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.List(c.UserContext())
		if err != nil {
			return writeAppError(c, err, "Failed to retrieve documents: ")
		}
		if docs == nil {
			docs = []model.Document{}
		}
		return c.JSON(listResponse{Documents: docs, Count: len(docs)})
	}
}

// ViewDocument streams the PDF for display in the browser.
//
// @Summary View a document inline
// @Tags documents
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id}/view [get]
func ViewDocument(svc service.DocumentService) fiber.Handler {
	return streamDocument(svc, "inline", "Failed to view file: ")
}

// DownloadDocument streams the PDF as an attachment.
//
// @Summary Download a document
// @Tags documents
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id} [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return streamDocument(svc, "attachment", "Failed to download file: ")
}

func streamDocument(svc service.DocumentService, disposition, failurePrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := svc.Open(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeAppError(c, err, failurePrefix)
		}

		// SendStream closes the content once the body has been written.
		c.Set(fiber.HeaderContentType, pdfContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition(disposition, file.Document.Filename))
		return c.SendStream(file.Content, int(file.Size))
	}
}

func contentDisposition(disposition, filename string) string {
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return disposition
}

// DeleteDocument removes a document's file and record.
//
// @Summary Delete a document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} deleteResponse
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeAppError(c, err, "Failed to delete document: ")
		}
		return c.JSON(deleteResponse{Message: "Document deleted successfully", ID: id})
	}
}
