package httpapi

import (
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	apimw "github.com/hamed0406/urlchecker/internal/httpapi/middleware"
	"github.com/hamed0406/urlchecker/internal/repo"
)

// Jobs is the part of the scheduler the API drives.
type Jobs interface {
	Schedule(c domain.CheckDefinition)
	Unschedule(checkID int64)
}

type noJobs struct{}

func (noJobs) Schedule(domain.CheckDefinition) {}
func (noJobs) Unschedule(int64)                {}

type Server struct {
	Logger   *zap.Logger
	Store    repo.Store
	Jobs     Jobs
	validate *validator.Validate
}

func NewServer(l *zap.Logger, store repo.Store, jobs Jobs) *Server {
	if jobs == nil {
		jobs = noJobs{}
	}
	v := validator.New()
	// report json field names so messages match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{Logger: l, Store: store, Jobs: jobs, validate: v}
}

type RouterOptions struct {
	Origins        []string
	RateLimitRPM   int
	RateLimitBurst int
	// Console, when set, is mounted at /ui and / redirects to it. It must
	// route on chi's route context, as a chi.Router does.
	Console http.Handler
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestID)
	r.Use(apimw.AccessLog(s.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.Origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", apimw.RequestIDHeader},
		ExposedHeaders: []string{totalCountHeader, apimw.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(opts.RateLimitRPM, opts.RateLimitBurst))

		r.Route("/checkdefinitions", func(r chi.Router) {
			r.Get("/", s.handleListChecks)
			r.Post("/", s.handleCreateCheck)
			r.Get("/{id}", s.handleGetCheck)
			r.Put("/{id}", s.handleUpdateCheck)
			r.Delete("/{id}", s.handleDeleteCheck)
		})
		r.Route("/notificationaddresses", func(r chi.Router) {
			r.Get("/", s.handleListAddresses)
			r.Post("/", s.handleCreateAddress)
			r.Get("/{id}", s.handleGetAddress)
			r.Put("/{id}", s.handleUpdateAddress)
			r.Delete("/{id}", s.handleDeleteAddress)
		})
		r.Route("/checkresults", func(r chi.Router) {
			r.Get("/", s.handleListResults)
			r.Get("/{id}", s.handleGetResult)
		})
		r.Route("/latestresults", func(r chi.Router) {
			r.Get("/", s.handleListLatest)
			r.Get("/{id}", s.handleGetLatest)
		})
	})

	if opts.Console != nil {
		r.Mount("/ui", opts.Console)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/ui/", http.StatusFound)
		})
	}
	return r
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// normalizeHTTPURL lowercases scheme and host, drops default ports and a bare
// trailing slash. Anything it cannot parse is returned unchanged.
func normalizeHTTPURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	if u.Path == "/" && u.RawQuery == "" && u.Fragment == "" {
		u.Path = ""
	}
	return u.String()
}
