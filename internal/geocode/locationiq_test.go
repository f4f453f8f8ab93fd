package geocode

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/trackmap/internal/httputil"
)

func TestShortPlaceName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Kinder Scout, Edale, High Peak, Derbyshire, England, United Kingdom", "Kinder Scout, Edale, High Peak"},
		{"UCR1234, Jacob's Ladder, Edale, High Peak, Derbyshire", "Jacob's Ladder, Edale, High Peak"},
		{" UCR99, Hope Road", "Hope Road"},
		{"Castleton, Hope Valley", "Castleton, Hope Valley"},
		{"Edale", "Edale"},
		{"UCR7", ""},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := ShortPlaceName(tt.in); got != tt.want {
			t.Errorf("ShortPlaceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocationIQ_Reverse(t *testing.T) {
	t.Parallel()
	m := httputil.NewMockHTTPClient()
	m.AddResponse(http.StatusOK, `{"display_name":"Ringing Roger, Edale, High Peak, Derbyshire"}`)

	g := NewLocationIQ(m, "https://us1.locationiq.com/v1/reverse.php", "pk.test")
	got, err := g.Reverse(context.Background(), kinder)
	if err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}
	if got != "Ringing Roger, Edale, High Peak" {
		t.Errorf("Reverse() = %q", got)
	}

	req := m.GetRequest(0)
	if req == nil {
		t.Fatal("no request recorded")
	}
	q := req.URL.Query()
	gotQuery := map[string]string{"key": q.Get("key"), "lat": q.Get("lat"), "lon": q.Get("lon"), "format": q.Get("format")}
	wantQuery := map[string]string{"key": "pk.test", "lat": "53.3849", "lon": "-1.8727", "format": "json"}
	if diff := cmp.Diff(wantQuery, gotQuery); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if req.URL.Path != "/v1/reverse.php" {
		t.Errorf("path = %q", req.URL.Path)
	}
}

func TestLocationIQ_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewLocationIQ(httputil.NewMockHTTPClient(), "https://x.test", "").Reverse(context.Background(), kinder)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("no key: err = %v, want ErrNotConfigured", err)
	}

	m := httputil.NewMockHTTPClient().AddResponse(http.StatusTooManyRequests, `{"error":"Rate Limited Second"}`)
	_, err = NewLocationIQ(m, "https://x.test", "k").Reverse(context.Background(), kinder)
	var se *httputil.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("rate limited: err = %v, want a 429 StatusError", err)
	}

	m = httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{}`)
	_, err = NewLocationIQ(m, "https://x.test", "k").Reverse(context.Background(), kinder)
	if err == nil || !strings.Contains(err.Error(), "display_name") {
		t.Errorf("empty body: err = %v, want a display_name error", err)
	}

	if _, err := NewLocationIQ(m, "://bad", "k").Reverse(context.Background(), kinder); err == nil {
		t.Error("bad endpoint: expected an error")
	}
}

func TestLocationIQ_WithResolver(t *testing.T) {
	t.Parallel()
	m := httputil.NewMockHTTPClient().
		AddResponse(http.StatusInternalServerError, "oops").
		AddResponse(http.StatusOK, `{"display_name":"Lose Hill, Castleton, High Peak"}`)
	clock := newClock()

	r := &Resolver{Geocoder: NewLocationIQ(m, "https://x.test/reverse", "k"), Policy: DefaultRetryPolicy, Clock: clock}
	got, err := r.Resolve(context.Background(), kinder)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.PlaceName != "Lose Hill, Castleton, High Peak" || got.Status != StatusResolved || got.Err != nil {
		t.Errorf("Resolve() = %+v", got)
	}
	if m.RequestCount() != 2 || len(clock.Sleeps()) != 1 {
		t.Errorf("requests = %d, sleeps = %d; want 2 and 1", m.RequestCount(), len(clock.Sleeps()))
	}
}
