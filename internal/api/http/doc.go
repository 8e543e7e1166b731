// Package http contains the REST handlers for plugin management, the
// remote catalog, bundle import/export and the worldbuilding data the
// frontend edits directly.
package http
