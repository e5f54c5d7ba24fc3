// Package api implements the HTTP status API of homied.
//
// Endpoints (all under /api/v1):
//
//	GET  /health                                         component health
//	GET  /devices                                        device summaries
//	GET  /devices/{id}                                   nodes and property values
//	PUT  /devices/{id}/state                             {"state": "sleeping"}
//	PUT  /devices/{id}/nodes/{node}/properties/{property} {"value": "21.5"}
//	GET  /devices/{id}/retained                          journaled retained topics
//	GET  /audit                                          state and value changes
//
// The last two are mounted only when the daemon runs with a database.
//
// State and value changes go through the same homie operations as the
// device's own code, so they are validated and published to the broker
// exactly as a local change would be.
//
// Every response carries an X-Request-ID header. Errors use the Error body
// with a machine-readable code.
package api
