package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jpalmerr/livedeck/host"
)

// liveAPIServer returns a provider stub answering every query with body.
func liveAPIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLiveAPI_CodeMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want host.State
	}{
		{"offline", 0, host.StateOffline},
		{"live", 1, host.StateLive},
		{"restricted counts as live", -6, host.StateLive},
		{"unknown code", 7, host.StateOffline},
		{"other negative code", -1, host.StateOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := liveAPIServer(t, http.StatusOK, fmt.Sprintf(`{"CHANNEL":{"RESULT":%d,"BNO":"1"}}`, tt.code))
			api := NewLiveAPI(nil, server.URL, 0)
			defer api.Close()

			got, err := api.QueryLiveness(context.Background(), "foo")
			if err != nil {
				t.Fatalf("QueryLiveness() error = %v", err)
			}
			if got.State != tt.want {
				t.Errorf("QueryLiveness() state = %v, want %v", got.State, tt.want)
			}
			if got.Code != tt.code {
				t.Errorf("QueryLiveness() code = %d, want %d", got.Code, tt.code)
			}
		})
	}
}

func TestLiveAPI_RequestFormat(t *testing.T) {
	var gotMethod, gotContentType string
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"CHANNEL":{"RESULT":0}}`))
	}))
	defer server.Close()

	api := NewLiveAPI(nil, server.URL, 0)
	if _, err := api.QueryLiveness(context.Background(), "streamer_1"); err != nil {
		t.Fatalf("QueryLiveness() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q, want form encoding", gotContentType)
	}

	want := map[string]string{
		"bid":         "streamer_1",
		"quality":     "original",
		"type":        "aid",
		"pwd":         "",
		"stream_type": "common",
	}
	for k, v := range want {
		vals, ok := gotForm[k]
		if !ok {
			t.Errorf("form field %q missing", k)
			continue
		}
		if len(vals) != 1 || vals[0] != v {
			t.Errorf("form[%q] = %v, want %q", k, vals, v)
		}
	}
}

func TestLiveAPI_MalformedResponse(t *testing.T) {
	bodies := map[string]string{
		"not json":         `<html>maintenance</html>`,
		"missing channel":  `{"RESULT":1}`,
		"missing result":   `{"CHANNEL":{}}`,
		"result as string": `{"CHANNEL":{"RESULT":"1"}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := liveAPIServer(t, http.StatusOK, body)
			got, err := NewLiveAPI(nil, server.URL, 0).QueryLiveness(context.Background(), "foo")
			if !errors.Is(err, ErrProviderMalformedResponse) {
				t.Errorf("QueryLiveness() error = %v, want ErrProviderMalformedResponse", err)
			}
			if got.State != host.StateOffline {
				t.Errorf("QueryLiveness() state = %v, want offline", got.State)
			}
		})
	}
}

func TestLiveAPI_Unreachable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := liveAPIServer(t, http.StatusBadGateway, `{"CHANNEL":{"RESULT":1}}`)
		got, err := NewLiveAPI(nil, server.URL, 0).QueryLiveness(context.Background(), "foo")
		if !errors.Is(err, ErrProviderUnreachable) {
			t.Errorf("QueryLiveness() error = %v, want ErrProviderUnreachable", err)
		}
		if got.State != host.StateOffline {
			t.Errorf("QueryLiveness() state = %v, want offline", got.State)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		got, err := NewLiveAPI(nil, addr, 0).QueryLiveness(context.Background(), "foo")
		if !errors.Is(err, ErrProviderUnreachable) {
			t.Errorf("QueryLiveness() error = %v, want ErrProviderUnreachable", err)
		}
		if got.State != host.StateOffline {
			t.Errorf("QueryLiveness() state = %v, want offline", got.State)
		}
	})
}

func TestNewLiveAPI_DefaultEndpoint(t *testing.T) {
	api := NewLiveAPI(nil, "", 0)
	if api.endpoint != DefaultLiveAPIURL {
		t.Errorf("endpoint = %q, want %q", api.endpoint, DefaultLiveAPIURL)
	}
}
