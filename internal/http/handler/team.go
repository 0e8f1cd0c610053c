package handler

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/service"
)

// teamInput reads the roster form. The image is optional.
func teamInput(c *fiber.Ctx) (service.TeamMemberInput, multipart.File, error) {
	in := service.TeamMemberInput{
		Name:     c.FormValue("name"),
		Role:     c.FormValue("role"),
		Bio:      c.FormValue("bio"),
		Creds:    c.FormValue("creds"),
		LinkedIn: c.FormValue("linkedin"),
	}
	up, f, err := formFile(c, "image")
	if err != nil {
		if errors.Is(err, errNoFile) {
			return in, nil, nil
		}
		return in, nil, err
	}
	in.Image = up
	return in, f, nil
}

func ListTeam(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		members, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err, "team member")
		}
		return c.JSON(members)
	}
}

func GetTeamMember(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err, "team member")
		}
		return c.JSON(m)
	}
}

func CreateTeamMember(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, f, err := teamInput(c)
		if err != nil {
			return writeFileError(c, err)
		}
		if f != nil {
			defer f.Close()
		}

		m, err := svc.Create(c.UserContext(), formID(c, "team"), in)
		if err != nil {
			return writeServiceError(c, err, "team member")
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

func UpdateTeamMember(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, f, err := teamInput(c)
		if err != nil {
			return writeFileError(c, err)
		}
		if f != nil {
			defer f.Close()
		}

		m, err := svc.Update(c.UserContext(), formID(c, "team"), c.Params("id"), in)
		if err != nil {
			return writeServiceError(c, err, "team member")
		}
		return c.JSON(m)
	}
}

// DeleteTeamMember asks for confirmation naming the member before removing it.
func DeleteTeamMember(svc service.TeamService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !confirmed(c) {
			m, err := svc.Get(c.UserContext(), id)
			if err != nil {
				return writeServiceError(c, err, "team member")
			}
			return writeConfirmationRequired(c, fmt.Sprintf("Are you sure you want to remove %s?", m.Name), id)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err, "team member")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
