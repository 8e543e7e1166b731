// Package store is the client for the remote plugin catalog.
//
// Catalog reachability and plugin validity are kept strictly apart:
// transport errors, HTTP error statuses and an open circuit all map to
// a catalog-unavailable condition, while a downloaded bundle that fails
// local re-validation is a validation failure like any other install.
package store
