package observability

import (
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"englearn/internal/auth"
	"englearn/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type Collector struct {
	db  *sql.DB
	log *logger.Logger

	mu           sync.RWMutex
	requestStats map[key]stat
	inFlight     atomic.Int64
	startedAt    time.Time
}

func NewCollector(db *sql.DB, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{
		db:           db,
		log:          log,
		requestStats: make(map[key]stat),
		startedAt:    time.Now(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records per-route counters and writes one access log line per
// request. It can sit at the router root: RequireAuth further in reports the
// authenticated user back through the context slot.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := auth.WithUserSlot(r.Context())

		c.inFlight.Add(1)
		defer c.inFlight.Add(-1)
		next.ServeHTTP(rec, r.WithContext(ctx))

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path := normalizedPath(r.URL.Path)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		userID := int64(0)
		if u, ok := auth.RecordedUser(ctx); ok {
			userID = u.ID
		}
		fields := []interface{}{
			"request_id", middleware.GetReqID(r.Context()),
			"user_id", userID,
			"quiz_id", extractQuizID(r.URL.Path),
			"method", r.Method,
			"path", path,
			"status", rec.status,
			"latency_ms", latencyMS,
			"remote_ip", strings.TrimSpace(r.RemoteAddr),
		}
		if rec.status >= http.StatusInternalServerError {
			c.log.Warn("http request", fields...)
			return
		}
		c.log.Info("http request", fields...)
	})
}

// sample is one exposition line of a family. labels is already rendered.
type sample struct {
	labels string
	value  string
}

type family struct {
	name    string
	help    string
	kind    string
	samples []sample
}

func (f family) writeTo(sb *strings.Builder) {
	if len(f.samples) == 0 {
		return
	}
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
	for _, s := range f.samples {
		if s.labels == "" {
			fmt.Fprintf(sb, "%s %s\n", f.name, s.value)
			continue
		}
		fmt.Fprintf(sb, "%s{%s} %s\n", f.name, s.labels, s.value)
	}
}

// snapshot copies the counters in label order.
func (c *Collector) snapshot() ([]key, map[key]stat, int64, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := make(map[key]stat, len(c.requestStats))
	keys := make([]key, 0, len(c.requestStats))
	for k, v := range c.requestStats {
		stats[k] = v
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Status < b.Status
	})
	return keys, stats, c.inFlight.Load(), c.startedAt
}

// MetricsHandler renders the collector in the Prometheus text format.
func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	keys, stats, inFlight, startedAt := c.snapshot()

	requests := family{name: "englearn_http_requests_total", help: "Requests served by route, method and status.", kind: "counter"}
	latencySum := family{name: "englearn_http_request_duration_ms_sum", help: "Total time spent serving requests in milliseconds.", kind: "counter"}
	latencyCount := family{name: "englearn_http_request_duration_ms_count", help: "Requests observed for the duration sum.", kind: "counter"}
	for _, k := range keys {
		labels := fmt.Sprintf("method=%q,path=%q,status=\"%d\"", k.Method, k.Path, k.Status)
		st := stats[k]
		requests.samples = append(requests.samples, sample{labels, strconv.FormatInt(st.Count, 10)})
		latencySum.samples = append(latencySum.samples, sample{labels, strconv.FormatFloat(st.LatencyMS, 'f', 3, 64)})
		latencyCount.samples = append(latencyCount.samples, sample{labels, strconv.FormatInt(st.Count, 10)})
	}

	families := []family{
		{name: "englearn_uptime_seconds", help: "Seconds since the process started serving.", kind: "gauge",
			samples: []sample{{value: strconv.FormatFloat(time.Since(startedAt).Seconds(), 'f', 0, 64)}}},
		{name: "englearn_http_requests_in_flight", help: "Requests currently being served.", kind: "gauge",
			samples: []sample{{value: strconv.FormatInt(inFlight, 10)}}},
		requests,
		latencySum,
		latencyCount,
	}
	if c.db != nil {
		dbs := c.db.Stats()
		families = append(families,
			family{name: "englearn_db_connections", help: "Database pool connections by state.", kind: "gauge", samples: []sample{
				{`state="open"`, strconv.Itoa(dbs.OpenConnections)},
				{`state="in_use"`, strconv.Itoa(dbs.InUse)},
				{`state="idle"`, strconv.Itoa(dbs.Idle)},
			}},
			family{name: "englearn_db_wait_total", help: "Connections waited for because the pool was exhausted.", kind: "counter",
				samples: []sample{{value: strconv.FormatInt(dbs.WaitCount, 10)}}},
		)
	}

	var sb strings.Builder
	for _, f := range families {
		f.writeTo(&sb)
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// extractQuizID returns the id following a "quiz" path segment, or 0.
func extractQuizID(path string) int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "quiz" {
			if id, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}
