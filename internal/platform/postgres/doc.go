// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in internal/store, together with the embedded schema
// migrations. Stores run on database/sql with the pgx driver and accept
// either a *sql.DB or a *sql.Tx through store.DBTX.
package postgres
