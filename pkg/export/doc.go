// Package export converts the ccproxy provider list into the formats of
// other Claude tooling.
//
//   - CLIProxy renders a CLIProxyAPI "openai-compatibility" YAML document.
//   - CCSwitch writes the providers table of a cc-switch SQLite database.
//
// The Note provider carries free text and is never exported.
package export
