package db

import (
	"context"
	"fmt"
)

// UpsertSource creates or refreshes the Source row for an event's
// source URL, keyed by registrable host. The create path classifies the
// host into a kind; the update path only bumps last_seen.
func (db *DB) UpsertSource(ctx context.Context, sourceURL string) (*Source, error) {
	host, err := RegistrableHost(sourceURL)
	if err != nil {
		return nil, err
	}

	canonical := "https://" + host
	var s Source
	err = db.pool.QueryRow(ctx,
		`INSERT INTO sources (url, label, kind, last_seen)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (url) DO UPDATE SET last_seen = NOW()
		 RETURNING id, url, label, kind, last_seen`,
		canonical, host, KindForHost(host),
	).Scan(&s.ID, &s.URL, &s.Label, &s.Kind, &s.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert source for %s: %w", host, err)
	}

	return &s, nil
}
