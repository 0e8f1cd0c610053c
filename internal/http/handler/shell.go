package handler

import (
	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/http/middleware"
)

type shellTab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

const defaultTab = "upload"

var shellTabs = []shellTab{
	{ID: "upload", Title: "Uploads"},
	{ID: "files", Title: "Files"},
	{ID: "contact", Title: "Contact"},
	{ID: "team", Title: "Team"},
	{ID: "branding", Title: "Branding"},
}

// Shell describes the dashboard navigation. ?tab= selects the active tab;
// unknown values fall back to the default.
func Shell() fiber.Handler {
	return func(c *fiber.Ctx) error {
		active := defaultTab
		if want := c.Query("tab"); want != "" {
			for _, t := range shellTabs {
				if t.ID == want {
					active = want
					break
				}
			}
		}

		user := fiber.Map{}
		if s := middleware.CurrentSession(c); s != nil {
			user = fiber.Map{"uid": s.UID, "email": s.Email}
		}
		return c.JSON(fiber.Map{
			"tabs":    shellTabs,
			"default": defaultTab,
			"active":  active,
			"user":    user,
		})
	}
}
