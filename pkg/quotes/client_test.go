package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", time.Second)
}

func TestClient_Current(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"chart":{"result":[%s],"error":null}}`, gappyChart)
	})

	quote, err := client.Current(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 190.5, quote.Price)
}

func TestClient_History(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "3mo", r.URL.Query().Get("range"))
		_, _ = fmt.Fprintf(w, `{"chart":{"result":[%s]}}`, gappyChart)
	})

	samples, err := client.History(context.Background(), "AAPL", "1d", "3mo")
	require.NoError(t, err)
	assert.Len(t, samples, 3)
}

func TestClient_ProviderErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		})
		_, err := client.Current(context.Background(), "AAPL")
		assert.ErrorContains(t, err, "(429)")
		assert.NotErrorIs(t, err, ErrNoData)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	})

	t.Run("unknown symbol status", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})
		_, err := client.History(context.Background(), "ZZZZ", "1d", "1mo")
		assert.ErrorIs(t, err, ErrNoData)
		assert.ErrorContains(t, err, "(404)")
	})

	t.Run("chart error object", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})
		_, err := client.Current(context.Background(), "ZZZZ")
		assert.ErrorContains(t, err, "symbol may be delisted")
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("empty result", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[]}}`))
		})
		_, err := client.Current(context.Background(), "AAPL")
		assert.True(t, errors.Is(err, ErrNoData))
	})

	t.Run("no usable price", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}]}}`))
		})
		_, err := client.Current(context.Background(), "AAPL")
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})
		_, err := client.History(context.Background(), "AAPL", "1d", "1mo")
		assert.ErrorContains(t, err, "failed to unmarshal")
	})
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Current(ctx, "AAPL")
	assert.Error(t, err)
}

func TestClient_RequiresSymbol(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 0)
	_, err := client.Chart(context.Background(), "", "1d", "1d")
	assert.ErrorIs(t, err, ErrSymbolRequired)
}
