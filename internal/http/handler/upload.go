package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/http/middleware"
	"siteadmin/internal/service"
)

// UploadFormHeader names the form instance an upload belongs to.
const UploadFormHeader = "X-Upload-Form"

var errNoFile = errors.New("no file in request")

// formFile opens the multipart file under field. The content type is sniffed
// when the client sent none or a generic one. Callers must close the file.
func formFile(c *fiber.Ctx, field string) (*service.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, errNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}

	ct := strings.TrimSpace(fh.Header.Get(fiber.HeaderContentType))
	if ct == "" || ct == fiber.MIMEOctetStream {
		mt, err := mimetype.DetectReader(f)
		if err == nil {
			ct = mt.String()
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, err
		}
	}

	return &service.Upload{
		Reader:      f,
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
	}, f, nil
}

// formID returns the X-Upload-Form header, or "<editor>:<uid>" when absent.
func formID(c *fiber.Ctx, editor string) string {
	if id := strings.TrimSpace(c.Get(UploadFormHeader)); id != "" {
		return id
	}
	uid := "anonymous"
	if s := middleware.CurrentSession(c); s != nil {
		uid = s.UID
	}
	return editor + ":" + uid
}

func writeFileError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errNoFile) {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}
	return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
}

// UploadProgress reports the in-flight state of a form.
func UploadProgress(tracker *service.UploadTracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := c.Params("form")
		percent, busy := tracker.Progress(form)
		return c.JSON(fiber.Map{"form": form, "inFlight": busy, "percent": percent})
	}
}
