package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/storage"
)

// ServeBlob serves objects of the in-memory store under its base URL.
func ServeBlob(store *storage.MemoryStorage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("*"))
		if err != nil {
			return fiber.ErrBadRequest
		}
		data, info, ok := store.Open(key)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		c.Set(fiber.HeaderETag, `"`+info.ETag+`"`)
		return c.Send(data)
	}
}
