package yahoo_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"priceservice/internal/strategy/yahoo"
)

func chartBody(meta string) io.ReadCloser {
	body := fmt.Sprintf(`{"chart":{"result":[{"meta":%s,"indicators":{"quote":[{"close":[100.5,null,101.25]}]}}],"error":null}}`, meta)
	return io.NopCloser(bytes.NewReader([]byte(body)))
}

func newStrategy(t *testing.T) (*yahoo.Strategy, *MockHTTPClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := NewMockHTTPClient(ctrl)
	s := yahoo.New(yahoo.Config{}, client, zerolog.Nop())
	return s, client
}

func TestFetchPrice_ParsesMetaFields(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/v8/finance/chart/RELIANCE.NS")
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       chartBody(`{"regularMarketPrice":2850.5,"regularMarketPreviousClose":2800.0}`),
			}, nil
		}).
		Times(1)

	pd, err := s.FetchPrice(context.Background(), "RELIANCE.NS")
	require.NoError(t, err)
	require.NotNil(t, pd)
	require.Equal(t, "RELIANCE.NS", pd.Symbol)
	require.Equal(t, 2850.5, pd.CurrentPrice)
	require.Equal(t, 2800.0, pd.PreviousClose)
	require.InDelta(t, 50.5, pd.Change, 1e-9)
	require.Equal(t, "yahoo", pd.Source)
}

func TestFetchPrice_AppendsDefaultSuffix(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.True(t, strings.HasSuffix(req.URL.Path, "/TCS.NS"), "got %s", req.URL.Path)
			return &http.Response{StatusCode: http.StatusOK, Body: chartBody(`{"regularMarketPrice":3500}`)}, nil
		}).
		Times(1)

	pd, err := s.FetchPrice(context.Background(), "tcs")
	require.NoError(t, err)
	require.NotNil(t, pd)
	require.Equal(t, "TCS", pd.Symbol, "caller symbol is preserved, only the upstream one is suffixed")
}

func TestFetchPrice_FallsBackToLastClose(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: chartBody(`{}`)}, nil).
		Times(1)

	pd, err := s.FetchPrice(context.Background(), "INFY.NS")
	require.NoError(t, err)
	require.NotNil(t, pd)
	require.Equal(t, 101.25, pd.CurrentPrice, "most recent non-null close wins")
}

func TestFetchPrice_UnknownSymbolIsAbsence(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("{}")),
		}, nil).
		Times(1)

	pd, err := s.FetchPrice(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, pd)
}

func TestFetchPrice_ServerErrorIsAFailure(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil).
		Times(1)

	pd, err := s.FetchPrice(context.Background(), "RELIANCE.NS")
	require.Error(t, err)
	require.Nil(t, pd)
}

func TestFetchPrice_MalformedPayloadIsAFailure(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("not json")),
		}, nil).
		Times(1)

	_, err := s.FetchPrice(context.Background(), "RELIANCE.NS")
	require.Error(t, err)
}

func TestFetchPrice_ChartErrorCode(t *testing.T) {
	s, client := newStrategy(t)

	client.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusOK,
			Body: io.NopCloser(strings.NewReader(
				`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)),
		}, nil).
		Times(1)

	pd, err := s.FetchPrice(context.Background(), "DELISTED")
	require.NoError(t, err)
	require.Nil(t, pd)
}
