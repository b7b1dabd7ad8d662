package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applogger "Infinity/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type tierRequest struct {
	Secret string `json:"secret" validate:"required,max=64"`
	Lang   string `json:"lang" default:"RU" validate:"oneof=RU EN"`
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/", `{"secret":"2741520"}`)
	var req tierRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		t.Fatalf("unexpected errors %+v", errs)
	}
	if req.Lang != "RU" {
		t.Fatalf("default not applied: %q", req.Lang)
	}

	c, _ = newContext(http.MethodPost, "/", `{"lang":"DE"}`)
	errs := ReadAndValidateRequest(c, &tierRequest{})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %+v", errs)
	}
	if errs[0].Field != "secret" || errs[0].Code != "ERR_REQUIRED" {
		t.Fatalf("unexpected first error %+v", errs[0])
	}
	if errs[1].Field != "lang" || errs[1].Code != "ERR_ONEOF" {
		t.Fatalf("unexpected second error %+v", errs[1])
	}

	c, _ = newContext(http.MethodPost, "/", `{"secret":`)
	if errs := ReadAndValidateRequest(c, &tierRequest{}); len(errs) != 1 || errs[0].Code != "ERR_MALFORMED" {
		t.Fatalf("expected malformed body error, got %+v", errs)
	}
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	appErr := TooManyRequestsError("ERR_QUOTA_EXCEEDED", "quota exceeded").WithParam("limit", 20).WithError(errors.New("20/20"))
	if err := AppErrorResponse(c, appErr); err != nil {
		t.Fatalf("response: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != 429 || len(body.Data) != 1 || body.Data[0].Code != "ERR_QUOTA_EXCEEDED" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	c, rec = newContext(http.MethodGet, "/", "")
	_ = AppErrorResponse(c, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown error, got %d", rec.Code)
	}
}

type panicHandler struct{}

func (panicHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/panic", func(echo.Context) error { panic("boom") })
	e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServerMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(panicHandler{}, applogger.Nop(), reg, WithAllowOrigins([]string{"http://app.local"}))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected recovered 500, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "http://app.local")
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "http://app.local" {
		t.Fatalf("unexpected preflight %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.local")
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("foreign origin got CORS headers: %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "infinity_http_requests_total") {
		t.Fatalf("metrics endpoint missing http counters")
	}
}
