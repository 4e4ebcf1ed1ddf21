// Package render parses the console's HTML templates and renders pages with
// the session flash, the signed-in user and sanitized Markdown.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexedwards/scs/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/olegiv/quizzer/internal/model"
)

// Session keys for flash messages.
const (
	flashKey     = "flash"
	flashTypeKey = "flash_type"
)

// Page directories. Each .html file under them becomes a template named
// "<dir>/<file>" rendered inside layouts/base.html.
var pageDirs = []string{"auth", "admin", "student"}

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	isDev          bool
	markdown       goldmark.Markdown
	ugcPolicy      *bluemonday.Policy
	strictPolicy   *bluemonday.Policy
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	IsDev          bool
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		isDev:          cfg.IsDev,
		markdown:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		ugcPolicy:      bluemonday.UGCPolicy(),
		strictPolicy:   bluemonday.StrictPolicy(),
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	const baseLayout = "layouts/base.html"

	for _, dir := range pageDirs {
		pages, err := templateFiles(templatesFS, dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", dir, err)
		}

		for _, tmplPath := range pages {
			name := dir + "/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

			files := []string{baseLayout}
			files = append(files, partials...)
			files = append(files, tmplPath)

			tmpl, err := template.New("").Funcs(r.templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	return nil
}

// templateFiles returns all .html files in dir. A missing dir yields none.
func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	var files []string

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return files, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Has reports whether a template was parsed under name.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

func (r *Renderer) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDateTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		"truncate": truncate,
		"markdown": r.Markdown,
		"plain":    r.PlainText,
	}
}

// Markdown renders s as Markdown and sanitizes the result for display.
func (r *Renderer) Markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(r.ugcPolicy.SanitizeBytes(buf.Bytes()))
}

// PlainText strips all markup from s.
func (r *Renderer) PlainText(s string) string {
	return strings.TrimSpace(r.strictPolicy.Sanitize(s))
}

func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return string(runes[:length]) + "..."
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Nav         string
	User        *model.User
	Data        any
	Form        map[string]string
	Errors      map[string]string
	Flash       string
	FlashType   string
	CurrentYear int
}

// Render renders a template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()

	if r.sessionManager != nil && data.Flash == "" {
		if flash := r.sessionManager.PopString(req.Context(), flashKey); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), flashTypeKey)
			if data.FlashType == "" {
				data.FlashType = "info"
			}
		}
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), flashKey, message)
		r.sessionManager.Put(req.Context(), flashTypeKey, flashType)
	}
}
