// Package types defines the JSON payloads shared by the proxy handlers and
// middleware.
//
// Every error response of ccproxy, on both the relay path and the control
// plane, is an ErrorBody:
//
//	HTTP/1.1 503 Service Unavailable
//	Content-Type: application/json; charset=utf-8
//
//	{"error":"no_provider_selected"}
//
// Upstream error bodies are never wrapped; once the error threshold is
// reached they are relayed to the client verbatim.
package types
