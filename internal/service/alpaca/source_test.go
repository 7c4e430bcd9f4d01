package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeatDash/internal/domain/models"
)

const barsJSON = `[
  {"t":"2024-01-02T05:00:00Z","o":10,"h":12,"l":9,"c":11,"v":1000,"n":5,"vw":10.5},
  {"t":"2024-01-03T05:00:00Z","o":11,"h":13,"l":10,"c":12.5,"v":2000,"n":7,"vw":12}
]`

// serveBars answers both the single and multi symbol bar endpoints.
func serveBars(symbol, bars string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/v2/stocks/bars") {
			fmt.Fprintf(w, `{"bars":{%q:%s},"next_page_token":null}`, symbol, bars)
			return
		}
		fmt.Fprintf(w, `{"symbol":%q,"bars":%s,"next_page_token":null}`, symbol, bars)
	}
}

func fixedClock() time.Time { return time.Date(2024, 1, 4, 21, 0, 0, 0, time.UTC) }

func TestSource_FetchMapsBars(t *testing.T) {
	srv := httptest.NewServer(serveBars("AAPL", barsJSON))
	defer srv.Close()

	s := New(Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL, Feed: "iex", RPS: 1000, Clock: fixedClock})
	bars, err := s.Fetch(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 12.0, bars[0].High)
	assert.Equal(t, 12.5, bars[1].Close)
	assert.Equal(t, 2000.0, bars[1].Volume)
}

func TestSource_MapsTooManyRequests(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, RPS: 1000, Clock: fixedClock})
	_, err := s.Fetch(context.Background(), "AAPL", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(1))
}

func TestSource_EmptyAndInvalid(t *testing.T) {
	srv := httptest.NewServer(serveBars("ZZZ", `[]`))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, RPS: 1000, Clock: fixedClock})
	_, err := s.Fetch(context.Background(), "ZZZ", 30)
	assert.ErrorIs(t, err, models.ErrNoData)

	_, err = s.Fetch(context.Background(), "ZZZ", 0)
	assert.ErrorIs(t, err, models.ErrInvalidDays)
}
