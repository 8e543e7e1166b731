// Package errs defines the classified error taxonomy for the plugin runtime.
//
// Every failure path into or out of plugin code resolves to one Kind, so a
// misbehaving plugin degrades only itself: handlers convert uncaught failures
// into an error-count increment plus a taxonomy entry instead of propagating
// them to the host process.
package errs
