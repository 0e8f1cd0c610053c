package handler

import (
	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/service"
)

type visibilityRequest struct {
	Current *bool `json:"current"`
}

// parseCurrent reads the {"current": bool} toggle body.
func parseCurrent(c *fiber.Ctx) (current, ok bool) {
	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil || req.Current == nil {
		return false, false
	}
	return *req.Current, true
}

func writeInvalidToggle(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", `body must be {"current": true|false}`)
}

func confirmed(c *fiber.Ctx) bool {
	return c.Query("confirm") == "true"
}

func writeConfirmationRequired(c *fiber.Ctx, message, target string) error {
	return writeEnvelope(c, fiber.StatusPreconditionRequired, errorEnvelope{
		Code:    "CONFIRMATION_REQUIRED",
		Message: message,
		Target:  target,
	})
}

// ListDocuments returns the documents newest first.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err, "document")
		}
		return c.JSON(docs)
	}
}

// UploadDocument accepts multipart/form-data with the file under "file".
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		up, f, err := formFile(c, "file")
		if err != nil {
			return writeFileError(c, err)
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), formID(c, "documents"), *up)
		if err != nil {
			return writeServiceError(c, err, "document")
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err, "document")
		}
		return c.JSON(doc)
	}
}

// ToggleDocumentVisibility stores the negation of the submitted current value.
func ToggleDocumentVisibility(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, ok := parseCurrent(c)
		if !ok {
			return writeInvalidToggle(c)
		}
		id := c.Params("id")
		next, err := svc.SetVisibility(c.UserContext(), id, current)
		if err != nil {
			return writeServiceError(c, err, "document")
		}
		return c.JSON(fiber.Map{"id": id, "isVisible": next})
	}
}

func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !confirmed(c) {
			return writeConfirmationRequired(c, "Delete this document?", id)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err, "document")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
