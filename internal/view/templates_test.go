package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.RenderStatus(rec, http.StatusBadRequest, "pages/login.html", TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok",
		Flash:     &shared.FlashMessage{Kind: "error", Message: "Session expired"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="tok"`)
	assert.Contains(t, rec.Body.String(), "Session expired")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1,234.50", formatMoney(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0.00", formatMoney(decimal.Zero))
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	assert.Error(t, e.Render(httptest.NewRecorder(), "x", TemplateData{}))
}
