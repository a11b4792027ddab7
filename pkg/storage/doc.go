// Package storage provides the GORM-backed implementation of the
// core.Store contract. SQLite covers tests and single-node deployments;
// PostgreSQL is the production path.
package storage
