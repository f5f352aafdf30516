// Package api defines the request and response types for the SnowFlow HTTP API.
//
// # API Overview
//
// SnowFlow provides a RESTful API for:
//   - Connection validation and edge risk annotation on the canvas
//   - Pre-run preflight checks (structure, data sources, semantic models, prompts)
//   - Saved workflow and template management
//   - Flow execution against the Snowflake Cortex backend (blocking, SSE, WebSocket)
//   - Health monitoring and metrics
//
// # Authentication
//
// When auth is enabled, endpoints accept either an API key header:
//
//	X-API-Key: your-api-key
//
// or a JWT bearer token:
//
//	Authorization: Bearer <token>
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
