package web

import (
	"net/http"
	"time"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/db"
	webembed "github.com/erazemk/zaloga/web"
)

// Options wires the web router.
type Options struct {
	DB          *db.DB
	Inventory   api.Inventory
	JWTSecret   string
	TokenExpiry time.Duration
	// Shutdown ends open /events streams when closed.
	Shutdown <-chan struct{}
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:          opts.DB,
		Inventory:   opts.Inventory,
		Templates:   templates,
		JWTSecret:   opts.JWTSecret,
		TokenExpiry: opts.TokenExpiry,
	}
	events := &api.ItemsHandler{Inventory: opts.Inventory, Done: opts.Shutdown}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(opts.JWTSecret)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.HomePage)))
	mux.Handle("GET /add", cookieAuth(http.HandlerFunc(s.AddPage)))
	mux.Handle("POST /add", cookieAuth(http.HandlerFunc(s.AddSubmit)))
	mux.Handle("POST /items/{id}/delete", cookieAuth(http.HandlerFunc(s.DeleteSubmit)))
	mux.Handle("GET /events", cookieAuth(http.HandlerFunc(events.Stream)))

	return mux, nil
}
