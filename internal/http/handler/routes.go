package handler

import (
	"github.com/gofiber/fiber/v2"

	"patientportal/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when no SQL store backs the service.
func RegisterRoutes(app *fiber.App, db Pinger, docSvc service.DocumentService) {
	app.Get("/", Root())
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", Liveness())

	docs := app.Group("/documents")
	docs.Post("/upload", UploadDocument(docSvc))
	docs.Get("/", ListDocuments(docSvc))
	docs.Get("/:id/view", ViewDocument(docSvc))
	docs.Get("/:id", DownloadDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}
