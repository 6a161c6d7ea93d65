// Package store implements competency.Store over memory, SQLite, and
// PostgreSQL.
//
// Every method is its own transaction. The SQL stores create their schema
// with Migrate; the memory store needs no setup.
package store
