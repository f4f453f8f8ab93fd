// Package geocode turns track start points into short place names.
package geocode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/trackmap/internal/geodesy"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/timeutil"
)

// PendingPlaceName marks a feature whose lookup failed. Features carrying
// it are retried on later runs.
const PendingPlaceName = "Place name pending"

// ErrNotConfigured is returned by geocoders that cannot make requests at
// all. It is never retried.
var ErrNotConfigured = errors.New("geocoder not configured")

// Geocoder makes a single reverse lookup.
type Geocoder interface {
	Reverse(ctx context.Context, p geodesy.LatLon) (string, error)
}

// Status says where a place name came from.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusManual   Status = "manual"
	StatusPending  Status = "pending"
)

// Result is the outcome of resolving one start point.
type Result struct {
	PlaceName string
	Status    Status

	// Err is set when the service was exhausted, whatever the fallback did.
	Err error
}

// ExternalServiceError reports a lookup that failed on every attempt.
type ExternalServiceError struct {
	Point    geodesy.LatLon
	Attempts int
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("reverse geocode (%v, %v) failed after %d attempt(s): %v", e.Point.Lat, e.Point.Lon, e.Attempts, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// RetryPolicy is a fixed number of attempts with a constant wait between.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy tries twice, 30 seconds apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 2, Backoff: 30 * time.Second}

// ManualFallback is consulted once the service is exhausted. Returning
// ok=false leaves the place name pending.
type ManualFallback func(ctx context.Context, p geodesy.LatLon, cause error) (name string, ok bool)

// Resolver wraps a Geocoder with retries and an optional manual fallback.
type Resolver struct {
	Geocoder Geocoder
	Policy   RetryPolicy
	Clock    timeutil.Clock
	Manual   ManualFallback
}

// NewResolver returns a Resolver using the real clock.
func NewResolver(g Geocoder, policy RetryPolicy, manual ManualFallback) *Resolver {
	return &Resolver{Geocoder: g, Policy: policy, Clock: timeutil.RealClock{}, Manual: manual}
}

// Resolve looks up p. Service failures never surface as errors: they yield
// a manual or pending Result. Only context cancellation is returned.
func (r *Resolver) Resolve(ctx context.Context, p geodesy.LatLon) (Result, error) {
	attempts := r.Policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var lastErr error
	tried := 0
	for tried < attempts {
		tried++
		name, err := r.Geocoder.Reverse(ctx, p)
		if err == nil {
			return Result{PlaceName: name, Status: StatusResolved}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		lastErr = err
		monitoring.Logger().Warn("reverse geocode failed",
			zap.Int("attempt", tried), zap.Float64("lat", p.Lat), zap.Float64("lon", p.Lon), zap.Error(err))
		if errors.Is(err, ErrNotConfigured) {
			break
		}
		if tried < attempts {
			if err := clock.Sleep(ctx, r.Policy.Backoff); err != nil {
				return Result{}, err
			}
		}
	}

	svcErr := &ExternalServiceError{Point: p, Attempts: tried, Err: lastErr}
	if r.Manual != nil {
		if name, ok := r.Manual(ctx, p, svcErr); ok {
			return Result{PlaceName: name, Status: StatusManual, Err: svcErr}, nil
		}
	}
	return Result{PlaceName: PendingPlaceName, Status: StatusPending, Err: svcErr}, nil
}

// PromptFallback asks an operator on out for a place name, reading one
// line from in. A blank answer leaves the name pending.
func PromptFallback(in io.Reader, out io.Writer) ManualFallback {
	scanner := bufio.NewScanner(in)
	return func(ctx context.Context, p geodesy.LatLon, cause error) (string, bool) {
		if ctx.Err() != nil {
			return "", false
		}
		fmt.Fprintf(out, "Lookup failed for start (%.6f, %.6f): %v\nEnter a place name (blank to leave pending): ", p.Lat, p.Lon, cause)
		if !scanner.Scan() {
			return "", false
		}
		name := strings.TrimSpace(scanner.Text())
		return name, name != ""
	}
}

// Disabled is the Geocoder used when no API key is available.
type Disabled struct{}

func (Disabled) Reverse(context.Context, geodesy.LatLon) (string, error) {
	return "", ErrNotConfigured
}
