package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/service"
)

func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err, "file")
		}
		return c.JSON(files)
	}
}

// UploadFile accepts multipart/form-data with fileName, category,
// description and the file under "file".
func UploadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.FileInput{
			Name:        c.FormValue("fileName"),
			Category:    c.FormValue("category"),
			Description: c.FormValue("description"),
		}
		up, f, err := formFile(c, "file")
		switch {
		case err == nil:
			defer f.Close()
			in.File = up
		case !errors.Is(err, errNoFile):
			return writeFileError(c, err)
		}

		file, err := svc.Upload(c.UserContext(), formID(c, "files"), in)
		if err != nil {
			return writeServiceError(c, err, "file")
		}
		return c.Status(fiber.StatusCreated).JSON(file)
	}
}

func GetFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err, "file")
		}
		return c.JSON(file)
	}
}

func ToggleFileShowOnSite(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, ok := parseCurrent(c)
		if !ok {
			return writeInvalidToggle(c)
		}
		id := c.Params("id")
		next, err := svc.SetShowOnSite(c.UserContext(), id, current)
		if err != nil {
			return writeServiceError(c, err, "file")
		}
		return c.JSON(fiber.Map{"id": id, "showOnSite": next})
	}
}

func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !confirmed(c) {
			return writeConfirmationRequired(c, "Are you sure you want to delete this file log?", id)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err, "file")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
