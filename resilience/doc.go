// Package resilience guards outbound calls.
//
// The package provides four patterns that compose through [Executor]:
//
//   - Timeout bounds a single call.
//   - Retry repeats a call on errors the caller marks as transient.
//   - CircuitBreaker fails fast after repeated failures and probes for
//     recovery after a cool-down.
//   - Bulkhead caps the number of calls in flight.
//
// Composition order, outermost first, is bulkhead, circuit breaker, retry,
// timeout:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "github"})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return client.fetch(ctx)
//	})
package resilience
