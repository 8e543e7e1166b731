// Package kv provides the durable key/value collaborator used by the
// plugin registry and the plugin-scoped storage namespace.
//
// Three backends implement the same Store contract:
//   - Memory: in-process map, for tests and ephemeral sessions
//   - File: one escaped file per key under a root directory
//   - Redis: shared backend for multi-instance deployments
//
// Key spaces are isolated by prefix (e.g. "plugin:" for registry records,
// "plugindata:<id>:" for a plugin's own storage), so cross-component
// contention is impossible by construction.
package kv
