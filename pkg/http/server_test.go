package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, map[string]int{"n": 1}) })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.GET("/nf", func(c echo.Context) error { return AppErrorResponse(c, NotFoundErrorf("universe %q", "x")) })
	e.GET("/plain", func(c echo.Context) error { return AppErrorResponse(c, errors.New("db down")) })
	e.GET("/validate", func(c echo.Context) error {
		var req struct {
			Universe string `query:"universe" validate:"required"`
			Days     int    `query:"days" default:"30" validate:"gte=1,lte=100"`
			Basis    string `query:"basis" default:"close" validate:"oneof=close intraday"`
		}
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
}

func newTestServer() *Server {
	return NewServer(routes{}, nil, WithRegistry(prometheus.NewRegistry()))
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServer_Envelopes(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"n":1}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = do(s, http.MethodGet, "/nf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ERR_NOT_FOUND"`)

	rec = do(s, http.MethodGet, "/plain")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(s, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "heatdash_http_requests_total")
}

func TestReadAndValidateRequest(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodGet, "/validate?universe=mega")
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Data struct {
			Universe string
			Days     int
			Basis    string
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, 30, ok.Data.Days)
	assert.Equal(t, "close", ok.Data.Basis)

	rec = do(s, http.MethodGet, "/validate?days=500&basis=open")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	fields := make([]string, 0, len(bad.Data))
	for _, e := range bad.Data {
		fields = append(fields, e.Field+":"+e.Code)
	}
	assert.ElementsMatch(t, []string{"universe:ERR_REQUIRED", "days:ERR_LTE", "basis:ERR_ONEOF"}, fields)
}

func TestClient_GetJSONWithRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/missing"):
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusNotFound)
		case atomic.AddInt32(&hits, 1) < 3:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"symbols":["AAPL"]}`))
		}
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithRetryBackoff(time.Millisecond))
	var out struct {
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, c.GetJSONWithRetry(context.Background(), srv.URL+"/mega", &out, 3))
	assert.Equal(t, []string{"AAPL"}, out.Symbols)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	atomic.StoreInt32(&hits, 0)
	err := c.GetJSONWithRetry(context.Background(), srv.URL+"/missing", &out, 3)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
