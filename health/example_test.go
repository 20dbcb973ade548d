package health_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/opscore/health"
)

func ExampleAggregator_RunAll() {
	prober := health.ProberFunc(func(ctx context.Context, spec health.ProbeSpec) health.Result {
		if spec.Key == "github" {
			return health.Degraded("HTTP 503", 40*time.Millisecond, time.Now())
		}
		return health.Operational(10*time.Millisecond, time.Now())
	})

	agg := health.NewAggregator(health.WithProber(prober))
	snap := agg.RunAll(context.Background(), []health.ProbeSpec{
		{Key: "github", Target: "https://api.github.com"},
		{Key: "portfolio", AssumeOperational: true},
	})

	for _, key := range snap.Keys() {
		fmt.Println(key, snap.Services[key].Status)
	}
	fmt.Println("overall", snap.Overall)
	// Output:
	// github degraded
	// portfolio operational
	// overall degraded
}
