// Package health probes dependent services and summarizes their state.
//
// # Core Concepts
//
// A [Result] records one service's [Status] (Operational, Degraded or Down),
// its response time, and the reason for any failure. A [Snapshot] groups the
// results of one cycle with an overall status, which is always the most
// severe status among its services:
//
//	Down > Degraded > Operational
//
// # Probing
//
// [HTTPProbe] issues a single GET with its own deadline and classifies the
// outcome. It never retries:
//
//   - response with the expected status code: Operational
//   - any other status code: Degraded, error "HTTP <code>"
//   - deadline exceeded: Down, error "Request timeout"
//   - transport failure: Down, error is the failure message
//
// # Aggregating
//
// [Aggregator.RunAll] runs every [ProbeSpec] concurrently, waits for all of
// them, and returns one atomic snapshot:
//
//	agg := health.NewAggregator()
//	snap := agg.RunAll(ctx, []health.ProbeSpec{
//	    {Key: "github", Target: "https://api.github.com", Timeout: 5 * time.Second},
//	    {Key: "email", Target: "https://api.resend.com", Timeout: 5 * time.Second, ExpectedStatus: 401},
//	})
//
// A spec with AssumeOperational set is not probed; it reports Operational
// with zero latency. This is used for a service that would otherwise probe
// itself.
package health
