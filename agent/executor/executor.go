package executor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	registryx "github.com/pitchside/pitchside-agent/agent/registry"
)

type Config struct {
	RealtimeTimeout time.Duration `envconfig:"REALTIME_TIMEOUT" split_words:"true" default:"4s"`
	DefaultTimeout  time.Duration `envconfig:"DEFAULT_TIMEOUT" split_words:"true" default:"8s"`
	MaxParallel     int           `envconfig:"MAX_PARALLEL" split_words:"true" default:"8"`
}

// Coordinator runs tool invocations concurrently and collects their
// settled results. Partial failures never abort siblings; the only
// shared state across invocations is the read-only registry.
type Coordinator struct {
	registry *registryx.Registry
	cfg      Config
}

func New(registry *registryx.Registry, cfg Config) *Coordinator {
	if cfg.RealtimeTimeout <= 0 {
		cfg.RealtimeTimeout = 4 * time.Second
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 8 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	return &Coordinator{registry: registry, cfg: cfg}
}

// Execute runs every invocation and returns one ToolResult per
// invocation, in invocation order, once all have settled.
func (c *Coordinator) Execute(ctx context.Context, invocations []contractx.ToolInvocation) []contractx.ToolResult {
	if len(invocations) == 0 {
		return nil
	}

	results := make([]contractx.ToolResult, len(invocations))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.cfg.MaxParallel)

	for i, inv := range invocations {
		i, inv := i, inv
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = c.run(gctx, inv)
			// Individual failure is not fatal to siblings.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Coordinator) run(ctx context.Context, inv contractx.ToolInvocation) contractx.ToolResult {
	started := time.Now()

	entry, err := c.registry.Get(inv.ToolID)
	if err != nil {
		return contractx.ToolResult{
			Invocation:  inv,
			Status:      contractx.StatusError,
			ErrorDetail: err.Error(),
			Latency:     time.Since(started),
		}
	}

	timeout := c.timeoutFor(entry.Descriptor.Freshness)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := entry.Impl.Invoke(callCtx, inv.Parameters)
	latency := time.Since(started)

	result := contractx.ToolResult{Invocation: inv, Latency: latency}
	switch {
	case err == nil && isEmptyPayload(payload):
		result.Status = contractx.StatusEmpty
	case err == nil:
		result.Status = contractx.StatusOK
		result.Payload = payload
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		result.Status = contractx.StatusTimeout
		result.ErrorDetail = err.Error()
	default:
		result.Status = contractx.StatusError
		result.ErrorDetail = err.Error()
	}

	log.Debug().
		Str("tool", inv.ToolID).
		Int("attempt", inv.Attempt).
		Str("status", string(result.Status)).
		Dur("latency", latency).
		Msg("tool invocation settled")

	return result
}

func (c *Coordinator) timeoutFor(freshness contractx.FreshnessClass) time.Duration {
	if freshness == contractx.FreshnessRealtime {
		return c.cfg.RealtimeTimeout
	}
	return c.cfg.DefaultTimeout
}

func isEmptyPayload(payload any) bool {
	switch v := payload.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
