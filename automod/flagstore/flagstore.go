package flagstore

import (
	"context"
)

// Flags used by the moderation core.
const (
	FlagShadowBan = "shadow-ban"
	FlagHidden    = "hidden"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}

func UserKey(userID string) string {
	return "user/" + userID
}

func ContentKey(contentID string) string {
	return "content/" + contentID
}

// Convenience wrapper around Get for a single flag.
func HasFlag(ctx context.Context, fs FlagStore, key, flag string) (bool, error) {
	l, err := fs.Get(ctx, key)
	if err != nil {
		return false, err
	}
	for _, f := range l {
		if f == flag {
			return true, nil
		}
	}
	return false, nil
}
