package server

import (
	"context"
	"time"

	"docgate/internal/auth"
	"docgate/internal/search"
	"docgate/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Sessions is the session registry surface the admin handlers need on top of
// what the authenticator already uses.
type Sessions interface {
	auth.SessionRegistry

	ListAll(ctx context.Context, includeExpired bool) ([]*store.Session, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config holds the server's runtime settings.
type Config struct {
	BaseURL      string
	CookieName   string
	CookieSecure bool
}

// Server is the HTTP surface: sign-in flow, document and group CRUD, search
// proxying and the admin session registry.
type Server struct {
	app           *fiber.App
	cfg           Config
	authenticator *auth.SignInAuthenticator
	users         auth.Users
	documents     store.Documents
	groups        store.Groups
	sessions      Sessions
	search        *search.Client
	logger        auth.Logger
}

// New wires the routes over the given services.
func New(
	cfg Config,
	authenticator *auth.SignInAuthenticator,
	users auth.Users,
	documents store.Documents,
	groups store.Groups,
	sessions Sessions,
	searchClient *search.Client,
	logger auth.Logger,
) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "docgate_session"
	}
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	s := &Server{
		cfg:           cfg,
		authenticator: authenticator,
		users:         users,
		documents:     documents,
		groups:        groups,
		sessions:      sessions,
		search:        searchClient,
		logger:        logger,
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: s.errorHandler,
	})

	s.registerRoutes()

	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the server on addr and blocks.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.Health)

	authGroup := s.app.Group("/auth")
	authGroup.Get("/:provider", s.BeginAuth)
	authGroup.Get("/:provider/callback", s.AuthCallback)
	authGroup.Post("/logout", s.Logout)

	api := s.app.Group("/api", s.RequireSession)
	api.Get("/me", s.Me)

	api.Get("/documents", s.ListDocuments)
	api.Post("/documents", s.CreateDocument)
	api.Get("/documents/:id", s.GetDocument)
	api.Patch("/documents/:id", s.UpdateDocument)
	api.Delete("/documents/:id", s.DeleteDocument)

	api.Get("/groups", s.ListGroups)
	api.Post("/groups", s.CreateGroup)
	api.Get("/groups/:id", s.GetGroup)
	api.Patch("/groups/:id", s.UpdateGroup)
	api.Delete("/groups/:id", s.DeleteGroup)

	api.Post("/search", s.Search)

	admin := api.Group("/admin", s.RequireAdmin)
	admin.Get("/sessions", s.ListSessions)
	admin.Post("/sessions/:tokenID/revoke", s.RevokeSession)
	admin.Post("/sessions/purge", s.PurgeSessions)
	admin.Post("/users/:id/sessions/revoke", s.RevokeUserSessions)
}

// errorHandler renders every handler error as a JSON envelope. Rich errors
// keep their HTTP code and text code; anything else becomes a 500 with no
// internal detail leaked.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		s.logger.Error("unhandled error: %v", err)
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	return c.Status(code).JSON(fiber.Map{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
