// Package relay sends transformed requests to upstream providers and
// streams their responses back to the client.
//
// A request moves through these states:
//
//	SENDING -> HEADERS_RECEIVED -> STREAMING -> DONE
//	                            \-> DROPPED
//	        \-> FAILED
//
// A non-2xx response below the provider's consecutive error threshold is
// DROPPED: nothing is written and the handler aborts the connection so the
// client retries on its own. At or above the threshold the error is relayed.
//
// Diagnostics reconstruct the relayed body (JSON fields, SSE text deltas, or
// a head/tail preview) and only run when debug logging is enabled.
package relay
