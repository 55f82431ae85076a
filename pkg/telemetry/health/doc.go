// Package health serves the operational endpoints of the proxy.
//
//   - /health: liveness, always 200 while the process is up
//   - /ready: readiness, 503 when a registered check fails
//   - /version: build information
//
// These endpoints are never behind client or UI authentication.
//
// Checks are registered by name and run concurrently with a per-check
// timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("providers", func(ctx context.Context) error {
//	    if len(reg.Providers()) == 0 {
//	        return errors.New("no providers configured")
//	    }
//	    return nil
//	})
package health
