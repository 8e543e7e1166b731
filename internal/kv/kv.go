package kv

import "context"

// Store is the durable key/value collaborator backing both the plugin
// registry and the plugin-scoped storage namespace. Implementations must
// be safe for concurrent use; key spaces are isolated by prefix, so
// callers never contend on each other's keys.
type Store interface {
	// Get returns the value for key, or found=false when absent
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any prior value
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key; removing an absent key is not an error
	Remove(ctx context.Context, key string) error

	// Keys returns all keys beginning with prefix, in no particular order
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources
	Close() error
}

// RemovePrefix deletes every key beginning with prefix.
func RemovePrefix(ctx context.Context, s Store, prefix string) error {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
