// Package lifecycle drives plugins through their runtime state machine.
//
// The manager owns a per-plugin entry holding the plugin's VM and its
// current api handle. Every entry into a plugin's code, whether an
// activate, a deactivate or a bus-delivered event handler, takes that
// plugin's entry lock, so a plugin never runs on two goroutines at
// once. Registry records remain the durable truth; entries only exist
// for plugins whose code has been loaded this process.
package lifecycle
