package nse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"priceservice/internal/strategy/nse"
)

// newServer serves the homepage (session warmup) and the quote endpoint.
func newServer(t *testing.T, quoteHandler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var homeHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		homeHits.Add(1)
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/api/quote-equity", quoteHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &homeHits
}

func TestFetchPrice_ParsesPriceInfo(t *testing.T) {
	srv, homeHits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "RELIANCE", r.URL.Query().Get("symbol"), "the .NS suffix must be stripped")
		w.Write([]byte(`{"priceInfo":{"lastPrice":2850.5,"previousClose":2800.0}}`))
	})

	s := nse.New(nse.Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	pd, err := s.FetchPrice(context.Background(), "reliance.ns")
	require.NoError(t, err)
	require.NotNil(t, pd)
	require.Equal(t, "RELIANCE.NS", pd.Symbol)
	require.Equal(t, 2850.5, pd.CurrentPrice)
	require.Equal(t, 2800.0, pd.PreviousClose)
	require.Equal(t, "nse", pd.Source)
	require.Equal(t, int32(1), homeHits.Load())
}

func TestFetchPrice_WarmsSessionOnce(t *testing.T) {
	srv, homeHits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"priceInfo":{"lastPrice":100}}`))
	})

	s := nse.New(nse.Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	_, err := s.FetchPrice(context.Background(), "TCS")
	require.NoError(t, err)
	_, err = s.FetchPrice(context.Background(), "INFY")
	require.NoError(t, err)
	require.Equal(t, int32(1), homeHits.Load())
}

func TestFetchPrice_CandidateFieldFallback(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		// no lastPrice; close carries a formatted string
		w.Write([]byte(`{"priceInfo":{"lastPrice":0,"close":"1,234.50"}}`))
	})

	s := nse.New(nse.Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	pd, err := s.FetchPrice(context.Background(), "SBIN")
	require.NoError(t, err)
	require.NotNil(t, pd)
	require.Equal(t, 1234.50, pd.CurrentPrice)
}

func TestFetchPrice_UnknownSymbolIsAbsence(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	s := nse.New(nse.Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	pd, err := s.FetchPrice(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, pd)
}

func TestFetchPrice_EmptyPriceInfoIsAbsence(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"priceInfo":{}}`))
	})

	s := nse.New(nse.Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	pd, err := s.FetchPrice(context.Background(), "TCS")
	require.NoError(t, err)
	require.Nil(t, pd)
}

func TestFetchPrice_ServerErrorIsAFailure(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusServiceUnavailable)
	})

	s := nse.New(nse.Config{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	_, err := s.FetchPrice(context.Background(), "TCS")
	require.Error(t, err)
}

func TestProbe_Unreachable(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	s := nse.New(nse.Config{BaseURL: srv.URL}, http.DefaultClient, zerolog.Nop())
	require.Error(t, s.Probe(context.Background()))
}
