// Package world holds the host's own domain records: worlds, characters
// and notes. The plugin runtime's data namespace is a thin adapter over
// this manager; it is kept deliberately small since the runtime only
// needs read/list/create operations with synchronous visibility.
package world
