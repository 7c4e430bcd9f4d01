package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
)

func TestStatic(t *testing.T) {
	s := NewStatic(map[string][]string{
		"semis": {"nvda", "AMD", "NVDA"},
		"mega":  {"AAPL", "MSFT"},
	})
	assert.Equal(t, []string{"mega", "semis"}, s.Names())

	syms, err := s.Resolve(context.Background(), "semis")
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AMD"}, syms)

	syms[0] = "X"
	again, _ := s.Resolve(context.Background(), "semis")
	assert.Equal(t, "NVDA", again[0])

	_, err = s.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrUnknownUniverse)
}

func TestRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/u/ai":
			_, _ = w.Write([]byte(`{"symbols":["nvda","msft"]}`))
		case "/u/empty":
			_, _ = w.Write([]byte(`{"symbols":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := NewRemote(srv.URL+"/u/", NewStatic(map[string][]string{"mega": {"AAPL"}, "empty": {"SPY"}}), nil)
	ctx := context.Background()

	syms, err := r.Resolve(ctx, "ai")
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "MSFT"}, syms)

	syms, err = r.Resolve(ctx, "mega")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, syms)

	syms, err = r.Resolve(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, syms)

	_, err = r.Resolve(ctx, "none")
	assert.ErrorIs(t, err, models.ErrUnknownUniverse)
	assert.Equal(t, []string{"empty", "mega"}, r.Names())

	_, err = NewRemote(srv.URL+"/u", nil, nil).Resolve(ctx, "none")
	assert.ErrorIs(t, err, models.ErrUnknownUniverse)
}
