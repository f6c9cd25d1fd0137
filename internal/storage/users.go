package storage

import (
	"context"
	"fmt"
)

// GetOrCreateUser maps a tailnet login to a user row, creating one on first
// sight. Display name and last_seen are refreshed on every call, so the row
// tracks whoever the tailnet says the caller currently is.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO users (login, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (login) DO UPDATE
			SET last_seen = now(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		 RETURNING id`,
		login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %q: %w", login, err)
	}
	return id, nil
}
