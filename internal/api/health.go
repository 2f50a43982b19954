package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/pkg/httputil"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ComponentCheck represents the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes the database and Redis.
type HealthChecker struct {
	db        Pinger
	redis     redis.UniversalClient
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker. Either dependency may be nil.
func NewHealthChecker(db Pinger, rdb redis.UniversalClient) *HealthChecker {
	return &HealthChecker{db: db, redis: rdb, startTime: time.Now()}
}

// HandleLiveness always returns 200 while the process is running.
//
//	GET /healthz
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "alive",
		"uptime": time.Since(hc.startTime).Truncate(time.Second).String(),
	})
}

// HandleReadiness returns 503 when any configured dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	ready := true
	for _, c := range checks {
		if c.Status == "down" {
			ready = false
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, 2)
	go func() {
		ch <- result{"database", probe(ctx, hc.db != nil, 3*time.Second, time.Second, func(ctx context.Context) error {
			return hc.db.PingContext(ctx)
		})}
	}()
	go func() {
		ch <- result{"redis", probe(ctx, hc.redis != nil, 2*time.Second, 500*time.Millisecond, func(ctx context.Context) error {
			return hc.redis.Ping(ctx).Err()
		})}
	}()

	checks := make(map[string]ComponentCheck, 2)
	for i := 0; i < 2; i++ {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

// probe runs ping with a timeout and grades the latency.
func probe(ctx context.Context, configured bool, timeout, slow time.Duration, ping func(context.Context) error) ComponentCheck {
	if !configured {
		return ComponentCheck{Status: "up", Message: "not configured"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(pingCtx)
	latency := time.Since(start)
	if err != nil {
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: fmt.Sprintf("ping failed: %v", err)}
	}
	if latency > slow {
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}
