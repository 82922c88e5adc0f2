package utils

import "gorm.io/gorm"

// DBOption mutates a gorm query before it runs. Repositories take a variadic
// list so the unit of work can hand its transaction to every call it wraps.
type DBOption func(*gorm.DB) *gorm.DB

func ApplyOptions(db *gorm.DB, opts ...DBOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// WithTx replaces the session with an open transaction handle.
func WithTx(tx *gorm.DB) DBOption {
	return func(_ *gorm.DB) *gorm.DB {
		return tx
	}
}

// WithPreload eager-loads an association, e.g. a schedule's job row.
func WithPreload(column string) DBOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(column)
	}
}
