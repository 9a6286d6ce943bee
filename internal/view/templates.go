package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sapients/tracker/internal/shared"
	"github.com/sapients/tracker/web"
)

// ErrNoEngine is returned when rendering through a nil Engine.
var ErrNoEngine = errors.New("view: template engine not initialised")

// Engine renders the embedded HTML templates.
type Engine struct {
	templates *template.Template
	buffers   sync.Pool
}

// TemplateData is what every page template receives.
type TemplateData struct {
	Title       string
	CSRFToken   string
	CurrentPath string
	User        *shared.SessionUser
	Modules     []string
	Data        any
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(funcs()).ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Engine{
		templates: tpl,
		buffers:   sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}, nil
}

// Render executes name into a buffer first, so a template error never leaves a
// half-written page behind a 200.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil || e.templates == nil {
		return ErrNoEngine
	}
	buf := e.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer e.buffers.Put(buf)

	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"moduleTitle": ModuleTitle,
	}
}

// ModuleTitle turns a module slug such as "concept-art" into "Concept Art".
func ModuleTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}
