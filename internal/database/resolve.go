package database

import (
	"context"
	"database/sql"
)

// Resolution levels, in the order the namespaces are searched.
const (
	ResolvedBuilding = "building"
	ResolvedProject  = "project"
	ResolvedArea     = "area"
)

// Resolution is the outcome of matching a free-text search term against the
// known entity names. Ambiguous means more than one row matched; resolution
// proceeds with the lowest id, which keeps "first match" deterministic.
type Resolution struct {
	Level     string
	ID        int64
	Name      string
	Ambiguous bool
}

func (d *Database) resolveName(ctx context.Context, table, term string) (int64, string, bool, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, name FROM `+table+`
        WHERE LOWER(name) = LOWER(?)
        ORDER BY id
        LIMIT 2
    `, term)
	if err != nil {
		return 0, "", false, err
	}
	defer rows.Close()

	var (
		id      int64
		name    string
		matches int
	)
	for rows.Next() {
		var rowID int64
		var rowName string
		if err := rows.Scan(&rowID, &rowName); err != nil {
			return 0, "", false, err
		}
		if matches == 0 {
			id, name = rowID, rowName
		}
		matches++
	}
	if err := rows.Err(); err != nil {
		return 0, "", false, err
	}
	if matches == 0 {
		return 0, "", false, sql.ErrNoRows
	}
	return id, name, matches > 1, nil
}

// ResolveSearchTerm matches term against building names, then project
// names, then area names; the first namespace with a hit wins. No hit
// returns ErrNotFound and the caller degrades to a city-wide comparison.
func (d *Database) ResolveSearchTerm(ctx context.Context, term string) (*Resolution, error) {
	for _, ns := range []struct {
		table string
		level string
	}{
		{"buildings", ResolvedBuilding},
		{"projects", ResolvedProject},
		{"areas", ResolvedArea},
	} {
		id, name, ambiguous, err := d.resolveName(ctx, ns.table, term)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Resolution{Level: ns.level, ID: id, Name: name, Ambiguous: ambiguous}, nil
	}
	return nil, ErrNotFound
}
