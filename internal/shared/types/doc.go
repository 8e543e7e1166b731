// Package types provides shared data structures for the WorldLoom backend.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Manifest: Declarative plugin descriptor with permission requests
//   - Plugin: Registry record wrapping a manifest with runtime state
//   - Bundle: Manifest + code install/export unit
//   - StoreListing: Remote catalog entry
//   - Event: Ephemeral host-domain event
//
// State Management:
//   - PluginState: Lifecycle state enum (installed, loaded, active, inactive, failed)
//   - PermissionType: Closed capability enum governing the api surface
//   - UsageStats: Activation count and last-used timestamp
package types
