// Package sandbox isolates plugin code inside per-plugin goja VMs.
//
// Each plugin's code runs in its own execution context with a separate
// global namespace; the only host surface it ever sees is the api handle
// injected as the activate() argument. Dangerous globals are stripped and
// console output is redirected into the structured log under the plugin's
// id. Entry points run under interrupt-based timeouts so a misbehaving
// plugin cannot hang the host.
package sandbox
