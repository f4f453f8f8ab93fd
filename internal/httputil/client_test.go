package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type place struct {
	DisplayName string `json:"display_name"`
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(m *MockHTTPClient)
		want      place
		wantErr   bool
		wantCode  int
		transport bool
	}{
		{
			name:  "decodes body",
			setup: func(m *MockHTTPClient) { m.AddResponse(http.StatusOK, `{"display_name":"Kinder Scout, Edale"}`) },
			want:  place{DisplayName: "Kinder Scout, Edale"},
		},
		{
			name:     "non-2xx",
			setup:    func(m *MockHTTPClient) { m.AddResponse(http.StatusTooManyRequests, `{"error":"Rate Limited"}`) },
			wantErr:  true,
			wantCode: http.StatusTooManyRequests,
		},
		{
			name:    "bad json",
			setup:   func(m *MockHTTPClient) { m.AddResponse(http.StatusOK, `{`) },
			wantErr: true,
		},
		{
			name:      "transport error",
			setup:     func(m *MockHTTPClient) { m.AddErrorResponse(errors.New("connection reset")) },
			wantErr:   true,
			transport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMockHTTPClient()
			tt.setup(m)

			var got place
			err := GetJSON(context.Background(), m, "https://example.test/reverse?key=secret", &got)
			if m.RequestCount() != 1 {
				t.Errorf("RequestCount() = %d, want 1", m.RequestCount())
			}
			if accept := m.GetRequest(0).Header.Get("Accept"); accept != "application/json" {
				t.Errorf("Accept = %q", accept)
			}
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("GetJSON() error = %v", err)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("decoded mismatch (-want +got):\n%s", diff)
				}
				return
			}
			if err == nil {
				t.Fatal("GetJSON() succeeded, want error")
			}
			var se *StatusError
			if tt.wantCode != 0 {
				if !errors.As(err, &se) {
					t.Fatalf("err = %v, want StatusError", err)
				}
				if se.StatusCode != tt.wantCode {
					t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.wantCode)
				}
				if strings.Contains(se.Error(), "secret") {
					t.Errorf("StatusError leaks the query: %v", se)
				}
			}
			if tt.transport && errors.As(err, &se) {
				t.Errorf("transport error reported as StatusError: %v", err)
			}
		})
	}
}

func TestStandardClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name":"Mam Tor"}`))
	}))
	defer srv.Close()

	var got place
	if err := GetJSON(context.Background(), NewStandardClient(srv.Client()), srv.URL, &got); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got.DisplayName != "Mam Tor" {
		t.Errorf("DisplayName = %q", got.DisplayName)
	}
	if NewStandardClient(nil).Client == nil {
		t.Error("NewStandardClient(nil) has no client")
	}
}

func TestMockHTTPClient_Defaults(t *testing.T) {
	m := NewMockHTTPClient()
	req, _ := http.NewRequest(http.MethodGet, "http://x", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if m.GetRequest(5) != nil {
		t.Error("GetRequest(5) should be nil")
	}

	m.DefaultError = errors.New("down")
	if _, err := m.Do(req); err == nil || err.Error() != "down" {
		t.Errorf("err = %v, want down", err)
	}
}

func TestGetJSON_TransportErrorHidesQuery(t *testing.T) {
	m := NewMockHTTPClient()
	m.AddErrorResponse(&url.Error{Op: "Get", URL: "https://example.test/reverse?key=secret", Err: errors.New("timeout")})

	var got place
	err := GetJSON(context.Background(), m, "https://example.test/reverse?key=secret", &got)
	var ue *url.Error
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *url.Error", err)
	}
	if ue.URL != "https://example.test/reverse" {
		t.Errorf("URL = %q, want the query stripped", ue.URL)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error leaks the query: %v", err)
	}
}
