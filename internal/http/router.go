package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"relay/internal/auth"
	"relay/internal/config"
	"relay/internal/http/handler"
	mw "relay/internal/http/middleware"
	"relay/internal/session"
)

type Deps struct {
	Auth     *auth.Service
	JWT      *auth.JWT
	Sessions *session.Registry
	Log      *zap.Logger
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.AccessLog(log))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Svc: d.Auth, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	sess := handler.Sessions{Registry: d.Sessions, Log: log}
	own := &handler.MemoryHandler{Sessions: sess}
	timeline := &handler.MemoryHandler{Sessions: sess, Timeline: true}
	tpl := &handler.TemplateHandler{Sessions: sess}
	tags := &handler.ValueTagHandler{Sessions: sess}
	pts := &handler.PointsHandler{Sessions: sess}
	me := &handler.MeHandler{Auth: d.Auth}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Get("/me", me.Me)
		r.Get("/stamps", handler.Catalog)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", own.List)
			r.Get("/stats", own.Stats)
			r.Post("/", own.Create)
			r.Patch("/{id}", own.Update)
			r.Delete("/{id}", own.Delete)
			r.Post("/{id}/like", own.Like)
			r.Post("/{id}/comments", own.Comment)
			r.Post("/{id}/stamps", own.Stamp)
		})

		r.Route("/timeline", func(r chi.Router) {
			r.Get("/", timeline.List)
			r.Post("/{id}/like", timeline.Like)
			r.Post("/{id}/comments", timeline.Comment)
			r.Post("/{id}/stamps", timeline.Stamp)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", tpl.List)
			r.Post("/", tpl.Create)
			r.Patch("/{id}", tpl.Update)
			r.Delete("/{id}", tpl.Delete)
		})

		r.Route("/value-tags", func(r chi.Router) {
			r.Get("/", tags.List)
			r.Get("/grouped", tags.Grouped)
			r.Post("/", tags.Create)
			r.Patch("/{id}", tags.Update)
			r.Delete("/{id}", tags.Delete)
		})

		r.Get("/points", pts.Get)
		r.Get("/points/history", pts.History)
	})

	return r
}
