package metrics

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"pizza-api/logger"

	"github.com/go-resty/resty/v2"
)

type ReporterConfig struct {
	URL    string
	Source string
	UserID string
	APIKey string
	Period time.Duration
}

// Reporter periodically pushes every counter to a line-protocol endpoint.
// Delivery failures are logged and dropped.
type Reporter struct {
	reg    *Registry
	cfg    ReporterConfig
	client *resty.Client
}

func NewReporter(reg *Registry, cfg ReporterConfig) *Reporter {
	return &Reporter{
		reg:    reg,
		cfg:    cfg,
		client: resty.New().SetTimeout(5 * time.Second),
	}
}

// Run pushes on every tick until ctx is cancelled
func (r *Reporter) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()
	log.Info("Metrics reporter started", "url", r.cfg.URL, "period", r.cfg.Period)
	for {
		select {
		case <-ctx.Done():
			log.Info("Metrics reporter stopped")
			return
		case <-ticker.C:
			if err := r.Push(ctx); err != nil {
				log.Warn("Failed to push metrics", "error", err)
			}
		}
	}
}

// Push sends one batch containing every counter and the runtime gauges
func (r *Reporter) Push(ctx context.Context) error {
	body := r.Lines()
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s:%s", r.cfg.UserID, r.cfg.APIKey)).
		SetBody(body).
		Post(r.cfg.URL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("metrics endpoint returned %s", resp.Status())
	}
	logger.FromContext(ctx).Debug("Pushed metrics", "bytes", len(body))
	return nil
}

// Lines renders counters as `prefix,source=S,name=N total=V`, where a counter
// named "request.get" has prefix "request" and name "get".
func (r *Reporter) Lines() string {
	var b strings.Builder
	for _, s := range r.reg.Snapshot() {
		prefix, name, ok := strings.Cut(s.Name, ".")
		if !ok {
			prefix, name = s.Name, "all"
		}
		fmt.Fprintf(&b, "%s,source=%s,name=%s total=%d\n", prefix, r.cfg.Source, name, s.Value)
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(&b, "system,source=%s,name=memory heap_bytes=%d\n", r.cfg.Source, mem.HeapAlloc)
	fmt.Fprintf(&b, "system,source=%s,name=goroutines count=%d", r.cfg.Source, runtime.NumGoroutine())
	return b.String()
}
