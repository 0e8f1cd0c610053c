package handler

import (
	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/service"
)

func GetBranding(svc service.BrandingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := svc.Get(c.UserContext())
		if err != nil {
			return writeServiceError(c, err, "site identity")
		}
		return c.JSON(id)
	}
}

// UploadLogo accepts multipart/form-data with the image under "logo".
func UploadLogo(svc service.BrandingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		up, f, err := formFile(c, "logo")
		if err != nil {
			return writeFileError(c, err)
		}
		defer f.Close()

		id, err := svc.UploadLogo(c.UserContext(), formID(c, "branding"), *up)
		if err != nil {
			return writeServiceError(c, err, "site identity")
		}
		return c.JSON(id)
	}
}
