package weather

import (
	"context"
)

// Source abstracts where historical observations come from (a local CSV
// export, a remote copy of it, ...).
type Source interface {
	Name() string
	Load(ctx context.Context) ([]*FeatureTable, error)
}

// Store is the contract the in-memory store and the SQLite store satisfy.
// ReplaceTables must publish the whole set atomically: a reader sees either
// the old tables or the new ones, never a mix.
type Store interface {
	ReplaceTables(tables []*FeatureTable) error
	GetTable(location string) (*FeatureTable, error)
	Locations() ([]LocationSummary, error)
}
