// Package ws pushes host events and plugin UI contributions to the
// frontend over WebSocket.
package ws
