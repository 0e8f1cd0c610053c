package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/model"
	"siteadmin/internal/service"
)

func GetContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Get(c.UserContext())
		if err != nil {
			return writeServiceError(c, err, "contact")
		}
		return c.JSON(v)
	}
}

// SaveContact saves both groups. A failing group is named in the error
// without undoing the other.
func SaveContact(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var v model.ContactView
		if err := c.BodyParser(&v); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := svc.SaveAll(c.UserContext(), v); err != nil {
			return writeGroupError(c, err)
		}
		return c.JSON(fiber.Map{"saved": []string{service.GroupContact, service.GroupHours}})
	}
}

func SaveContactInfo(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var info model.ContactInfo
		if err := c.BodyParser(&info); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := svc.SaveContact(c.UserContext(), info); err != nil {
			return writeServiceError(c, err, "contact")
		}
		return c.JSON(fiber.Map{"saved": []string{service.GroupContact}})
	}
}

func SaveBusinessHours(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var hours model.BusinessHours
		if err := c.BodyParser(&hours); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := svc.SaveHours(c.UserContext(), hours); err != nil {
			return writeServiceError(c, err, "business hours")
		}
		return c.JSON(fiber.Map{"saved": []string{service.GroupHours}})
	}
}

func writeGroupError(c *fiber.Ctx, err error) error {
	groups := service.FailedGroups(err)
	env := errorEnvelope{
		Code:    "SAVE_FAILED",
		Message: "failed to save: " + strings.Join(groups, ", "),
		Groups:  groups,
	}
	status := fiber.StatusInternalServerError

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		status = fiber.StatusBadRequest
		env.Code = "VALIDATION_FAILED"
		env.Fields = ve.Fields
	}
	return writeEnvelope(c, status, env)
}
