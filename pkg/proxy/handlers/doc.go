// Package handlers provides HTTP request handlers for the proxy server.
//
// # Handler Types
//
// Relay:
//   - MessagesHandler: POST /v1/messages to the selected provider
//
// Control plane (ControlHandler, behind UI auth):
//   - State: GET /api/state
//   - Select: POST /api/select
//   - RefreshModels: POST /api/refresh-models
//   - Reload, Reset: POST /api/reload, POST /api/reset
//   - ProviderAuth: POST /api/provider-auth
//   - TestProvider: POST /api/test-provider
//   - RefreshAndTest: POST /api/refresh-and-test
//
// Static assets (StaticHandler):
//   - Index, AppJS, Styles: /, /app.js, /styles.css from server.web_dir
//   - Docs: /docs from server.docs_dir
//
// # Request Flow
//
// MessagesHandler follows a fixed order:
//
//  1. Capture the selected provider (503 no_provider_selected if none)
//  2. Check the client key (401 unauthorized)
//  3. Read the body, bounded by proxy.max_body_bytes
//  4. Forward the transformed request upstream (502 on failure)
//  5. Stream the response, applying the error threshold policy
//
// A response dropped by the threshold policy panics with
// http.ErrAbortHandler; net/http closes the connection and the client sees
// a network error, which it retries.
//
// # Control Bodies
//
// Control endpoints take a JSON object. An empty body is treated as {} and
// anything that is not an object is answered with 400 invalid_json.
package handlers
