// Package discovery lists the models each provider serves and keeps the
// registry's model lists current.
//
// A provider's model listing lives at {base}/v1/models, where base is the
// provider's base_url with its query dropped and a known messages or chat
// completions path removed. Credentials are placed as in override mode, defaulting to a
// header. The listing is a JSON document whose data[].id values name the
// models.
//
// Refreshes run concurrently with a bounded number of providers in flight,
// and concurrent refreshes of the same provider share one request.
// A Scheduler can run RefreshAll on a cron schedule.
package discovery
