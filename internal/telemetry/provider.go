package telemetry

import (
	"context"
	"time"

	"github.com/akshaymalik1995/llm-agent/models"
	"github.com/akshaymalik1995/llm-agent/provider"
)

// instrumentedProvider wraps a Provider with call and latency metrics.
type instrumentedProvider struct {
	inner provider.Provider
}

// InstrumentProvider decorates p so every completion call is counted and
// timed.
func InstrumentProvider(p provider.Provider) provider.Provider {
	return &instrumentedProvider{inner: p}
}

func (ip *instrumentedProvider) Complete(ctx context.Context, prompt string, opts provider.Options) (string, error) {
	start := time.Now()
	out, err := ip.inner.Complete(ctx, prompt, opts)
	kind := ""
	if err != nil {
		kind = string(models.KindOf(err))
	}
	ObserveLLMCall(start, kind)
	return out, err
}
