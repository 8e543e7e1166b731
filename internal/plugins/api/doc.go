// Package api builds the capability-scoped surface a plugin sees.
//
// A Handle is bound once per activation and injected into the sandbox as
// the activate() argument. It exposes four namespaces (storage, ui, data
// and events), and every method funnels through a single guard
// that re-checks the plugin's grant set at call time. An ungranted call
// throws a PermissionDenied condition into the plugin; a call on a handle
// that outlived its activation throws HandleInvalid. Storage keys are
// prefixed per plugin id, and data calls draw from a token-bucket budget.
package api
