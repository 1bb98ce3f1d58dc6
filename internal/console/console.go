// Package console serves the admin screens for the resources in a
// resource.Registry, reading and writing them through the data client.
package console

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hamed0406/urlchecker/internal/dataprovider"
	apimw "github.com/hamed0406/urlchecker/internal/httpapi/middleware"
	"github.com/hamed0406/urlchecker/internal/resource"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type Options struct {
	// APIBase is the backend root. It is fixed at startup and never taken
	// from the incoming request.
	APIBase string
	// Prefix is the path the console is mounted under, e.g. "/ui".
	Prefix     string
	HTTPClient *http.Client
	Registry   *resource.Registry
	PerPage    int
}

type Console struct {
	log      *zap.Logger
	opts     Options
	api      *dataprovider.Client
	pages    map[string]*template.Template
	validate *validator.Validate
	printer  *message.Printer
}

func New(log *zap.Logger, opts Options) (*Console, error) {
	if opts.Registry == nil {
		opts.Registry = resource.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.PerPage <= 0 {
		opts.PerPage = defaultPerPage
	}
	opts.Prefix = strings.TrimRight(opts.Prefix, "/")

	c := &Console{
		log:      log,
		opts:     opts,
		validate: validator.New(),
		printer:  message.NewPrinter(language.English),
	}
	if opts.APIBase == "" {
		return nil, errors.New("console: api base is required")
	}
	api, err := dataprovider.New(opts.APIBase, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("console api base: %w", err)
	}
	c.api = api

	c.pages = make(map[string]*template.Template)
	for _, name := range []string{"list", "form"} {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		c.pages[name] = t
	}
	return c, nil
}

// Handler routes the console. Mounted under another chi router it routes on
// the remaining path, so Options.Prefix only affects generated links.
func (c *Console) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(ensureRequestID)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, c.href(c.opts.Registry.First().Name), http.StatusFound)
	})
	r.Route("/{resource}", func(r chi.Router) {
		r.Get("/", c.handleList)
		r.Get("/create", c.handleCreateForm)
		r.Post("/create", c.handleCreate)
		r.Get("/{id}", c.handleEditForm)
		r.Post("/{id}", c.handleUpdate)
		r.Post("/{id}/delete", c.handleDelete)
	})
	return gziphandler.GzipHandler(r)
}

func ensureRequestID(next http.Handler) http.Handler {
	withID := apimw.RequestID(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apimw.GetRequestID(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}
		withID.ServeHTTP(w, r)
	})
}

func (c *Console) resource(w http.ResponseWriter, r *http.Request) (*resource.Resource, bool) {
	res, ok := c.opts.Registry.Get(chi.URLParam(r, "resource"))
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	return res, true
}

func (c *Console) href(parts ...string) string {
	return c.opts.Prefix + "/" + strings.Join(parts, "/")
}

func (c *Console) fetchFailed(r *http.Request, res string, err error) {
	c.log.Warn("console_fetch_error",
		zap.String("resource", res),
		zap.String("request_id", apimw.GetRequestID(r.Context())),
		zap.Error(err))
}

type navItem struct {
	Label, Icon, Href string
	Active            bool
}

type page struct {
	Title  string
	Nav    []navItem
	Notice string
	Error  string
	List   *listView
	Form   *formView
}

func (c *Console) newPage(w http.ResponseWriter, r *http.Request, active *resource.Resource, title string) *page {
	p := &page{Title: title}
	for _, res := range c.opts.Registry.All() {
		p.Nav = append(p.Nav, navItem{
			Label:  res.Label,
			Icon:   res.Icon,
			Href:   c.href(res.Name),
			Active: res == active,
		})
	}
	switch r.URL.Query().Get("notice") {
	case "created":
		p.Notice = "Element created"
	case "updated":
		p.Notice = "Element updated"
	case "deleted":
		p.Notice = "Element deleted"
	}
	p.Error = c.takeFlash(w, r)
	return p
}

func (c *Console) render(w http.ResponseWriter, name string, status int, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.pages[name].Execute(w, p); err != nil {
		c.log.Error("console_render_error", zap.String("page", name), zap.Error(err))
	}
}

// afterWrite is where a successful create, update or delete lands: the
// caller's redirect when it stays inside the console, else the list.
func (c *Console) afterWrite(r *http.Request, res *resource.Resource, notice string) string {
	if to := r.FormValue("redirect"); c.local(to) {
		sep := "?"
		if strings.Contains(to, "?") {
			sep = "&"
		}
		return to + sep + "notice=" + notice
	}
	return c.href(res.Name) + "?notice=" + notice
}

func (c *Console) local(to string) bool {
	return to != "" && strings.HasPrefix(to, c.opts.Prefix+"/") && !strings.HasPrefix(to, "//")
}
