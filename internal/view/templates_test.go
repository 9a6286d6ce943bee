package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapients/tracker/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginHidesNavigationForAnonymous(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, http.StatusOK, "login.html", TemplateData{Title: "Sign in"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/login"`)
	assert.NotContains(t, rec.Body.String(), "<nav>")
}

func TestRenderLayoutCarriesCSRFToken(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, http.StatusOK, "module.html", TemplateData{
		Title:       "lore",
		CSRFToken:   "tok123",
		CurrentPath: "/m/lore",
		User:        &shared.SessionUser{ID: 1, Name: "Ada"},
		Modules:     []string{"dashboard", "lore"},
		Data:        map[string]any{"Items": []any{}},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, `value="tok123"`)
	assert.Contains(t, body, `href="/m/lore" class="active"`)
	assert.Contains(t, body, "No records.")
}

func TestRenderFailureWritesNoPartialPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, http.StatusOK, "missing.html", TemplateData{})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")
}

func TestNavigationUsesModuleTitles(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, http.StatusOK, "dashboard.html", TemplateData{
		Title:   "Dashboard",
		User:    &shared.SessionUser{ID: 1, Name: "Ada"},
		Modules: []string{"dashboard", "concept-art"},
		Data:    map[string]any{},
	}))
	assert.Contains(t, rec.Body.String(), `href="/m/concept-art">Concept Art</a>`)
}

func TestNilEngine(t *testing.T) {
	var engine *Engine
	assert.ErrorIs(t, engine.Render(httptest.NewRecorder(), http.StatusOK, "login.html", TemplateData{}), ErrNoEngine)
}
