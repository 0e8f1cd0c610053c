package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"

	_ "siteadmin/docs"
	"siteadmin/internal/auth"
	"siteadmin/internal/http/middleware"
	"siteadmin/internal/repository"
	"siteadmin/internal/service"
	"siteadmin/internal/storage"
)

// Deps are the collaborators the HTTP layer is built on. DB and Blobs are
// optional: without DB the health check reports healthy, and Blobs is only
// set when objects are kept in memory.
type Deps struct {
	DB           *sql.DB
	Repo         repository.Repository
	Auth         auth.Service
	Documents    service.DocumentService
	Files        service.FileService
	Team         service.TeamService
	Contact      service.ContactService
	Branding     service.BrandingService
	Tracker      *service.UploadTracker
	Blobs        *storage.MemoryStorage
	LoginLimiter fiber.Handler
	LoginPath    string
	SecureCookie bool
	Logger       *zap.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Everything
// under /api except sign-in and sign-out sits behind the session guard.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.LoginPath == "" {
		d.LoginPath = "/login"
	}
	if d.LoginLimiter == nil {
		d.LoginLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	// The generated doc leaves host and schemes empty, so the UI targets
	// whichever origin served it.
	app.Get("/swagger/*", swagger.HandlerDefault)

	if d.Blobs != nil {
		app.Get("/blobs/*", ServeBlob(d.Blobs))
	}

	app.Post("/api/auth/login", d.LoginLimiter, Login(d.Auth, d.SecureCookie, d.Logger))
	app.Post("/api/auth/logout", Logout(d.Auth, d.SecureCookie))

	api := app.Group("/api", middleware.Guard(d.Auth, d.LoginPath))

	api.Get("/auth/session", CurrentSession())
	api.Get("/shell", Shell())
	api.Get("/uploads/:form", UploadProgress(d.Tracker))
	api.Get("/subscribe", SubscribeUpgrade(), Subscribe(d.Repo, d.Auth, d.Logger))

	api.Get("/documents", ListDocuments(d.Documents))
	api.Post("/documents", UploadDocument(d.Documents))
	api.Get("/documents/:id", GetDocument(d.Documents))
	api.Patch("/documents/:id/visibility", ToggleDocumentVisibility(d.Documents))
	api.Delete("/documents/:id", DeleteDocument(d.Documents))

	api.Get("/files", ListFiles(d.Files))
	api.Post("/files", UploadFile(d.Files))
	api.Get("/files/:id", GetFile(d.Files))
	api.Patch("/files/:id/visibility", ToggleFileShowOnSite(d.Files))
	api.Delete("/files/:id", DeleteFile(d.Files))

	api.Get("/team", ListTeam(d.Team))
	api.Post("/team", CreateTeamMember(d.Team))
	api.Get("/team/:id", GetTeamMember(d.Team))
	api.Put("/team/:id", UpdateTeamMember(d.Team))
	api.Delete("/team/:id", DeleteTeamMember(d.Team))

	api.Get("/contact", GetContact(d.Contact))
	api.Put("/contact", SaveContact(d.Contact))
	api.Put("/contact/info", SaveContactInfo(d.Contact))
	api.Put("/contact/hours", SaveBusinessHours(d.Contact))

	api.Get("/branding", GetBranding(d.Branding))
	api.Post("/branding/logo", UploadLogo(d.Branding))
}
