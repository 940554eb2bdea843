package solarlog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(ts *httptest.Server, kind Kind) *Client {
	c := NewClient(ts.URL, kind, 5*time.Second)
	c.prepareInterval = time.Millisecond
	c.prepareAttempts = 5
	return c
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("NEW")
	require.NoError(t, err)
	assert.Equal(t, KindNew, k)

	k, err = ParseKind("old")
	require.NoError(t, err)
	assert.Equal(t, KindOld, k)

	_, err = ParseKind("ancient")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestClientValidate(t *testing.T) {
	assert.Error(t, NewClient("", KindNew, time.Second).Validate())
	assert.ErrorIs(t, NewClient("192.168.1.55", Kind("x"), time.Second).Validate(), ErrUnknownKind)

	c := NewClient("192.168.1.55", KindOld, time.Second)
	require.NoError(t, c.Validate())
	assert.Equal(t, "http://192.168.1.55", c.baseURL)
	assert.Equal(t, "192.168.1.55", c.Addr())

	c = NewClient("https://gw.example.com/base", KindNew, time.Second)
	assert.Equal(t, "https://gw.example.com/base", c.baseURL)
}

func TestAttempts(t *testing.T) {
	assert.Equal(t, 50, attempts(500*time.Second, 10*time.Second))
	assert.Equal(t, 2, attempts(15*time.Second, 10*time.Second))
	assert.Equal(t, 1, attempts(0, 10*time.Second))
	assert.Equal(t, 1, attempts(time.Minute, 0))
}

func TestPrepare(t *testing.T) {
	t.Run("new completes", func(t *testing.T) {
		var polls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/getjp", r.URL.Path)
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			switch string(body) {
			case prepareRequest:
				_, _ = w.Write([]byte(`{"737":1}`))
			case statusRequest:
				if polls.Add(1) < 3 {
					_, _ = w.Write([]byte(`{"801":{"777":1,"778":0}}`))
					return
				}
				_, _ = w.Write([]byte(`{"801":{"777":3,"778":100}}`))
			default:
				t.Errorf("unexpected body %q", body)
			}
		}))
		defer ts.Close()

		require.NoError(t, testClient(ts, KindNew).Prepare(context.Background()))
		assert.Equal(t, int32(3), polls.Load())
	})

	t.Run("new times out", func(t *testing.T) {
		var polls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) == statusRequest {
				polls.Add(1)
			}
			_, _ = w.Write([]byte(`{"801":{"777":1}}`))
		}))
		defer ts.Close()

		err := testClient(ts, KindNew).Prepare(context.Background())
		assert.ErrorIs(t, err, ErrPrepareTimeout)
		assert.Equal(t, int32(5), polls.Load())
	})

	t.Run("new not found", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		err := testClient(ts, KindNew).Prepare(context.Background())
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusNotFound, te.StatusCode)
	})

	t.Run("new canceled", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		c := testClient(ts, KindNew)
		c.prepareInterval = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		assert.ErrorIs(t, c.Prepare(ctx), context.Canceled)
	})

	t.Run("old", func(t *testing.T) {
		var called bool
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/expcsv.dat", r.URL.Path)
			assert.Equal(t, "1", r.URL.RawQuery)
		}))
		defer ts.Close()

		require.NoError(t, testClient(ts, KindOld).Prepare(context.Background()))
		assert.True(t, called)
	})

	t.Run("old with padded kind", func(t *testing.T) {
		var called bool
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Equal(t, "/expcsv.dat", r.URL.Path)
		}))
		defer ts.Close()

		c := testClient(ts, Kind(" OLD "))
		require.NoError(t, c.Validate())
		assert.Equal(t, KindOld, c.kind)
		require.NoError(t, c.Prepare(context.Background()))
		assert.True(t, called)
	})
}

func TestDownload(t *testing.T) {
	const export = "27/01/17;2:30:00 PM;1;941;4546;7;0;37301;228;252;4457;3720\n"

	t.Run("primary", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/export_min.csv", r.URL.Path)
			_, _ = w.Write([]byte(export))
		}))
		defer ts.Close()

		body, err := testClient(ts, KindNew).Download(context.Background())
		require.NoError(t, err)
		assert.Equal(t, export, string(body))
	})

	t.Run("fallback", func(t *testing.T) {
		var paths []string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if r.URL.Path == "/export_min.csv" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(export))
		}))
		defer ts.Close()

		body, err := testClient(ts, KindNew).Download(context.Background())
		require.NoError(t, err)
		assert.Equal(t, export, string(body))
		assert.Equal(t, []string{"/export_min.csv", "/sec/export_min.csv"}, paths)
	})

	t.Run("both fail", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		_, err := testClient(ts, KindNew).Download(context.Background())
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
		assert.Contains(t, te.URL, "/sec/export_min.csv")
	})

	t.Run("unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		c := NewClient(url, KindNew, time.Second)
		_, err := c.Download(context.Background())
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Zero(t, te.StatusCode)
		assert.Contains(t, te.URL, "/export_min.csv")
		assert.NotContains(t, te.URL, "/sec/")
	})
}
