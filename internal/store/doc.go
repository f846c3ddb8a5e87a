// Package store runs rendered statements against MySQL.
//
// A Store owns a go-sql-driver/mysql connection pool. Statements are
// compiled by querysql, their `??` identifiers expanded to quoted names, and
// executed through an Executor bound either to the pool or to a single
// transaction.
//
// # Transactions
//
// WithTransaction acquires one connection, begins a transaction and hands
// the work function an Executor bound to it. The transaction commits when
// the work returns nil and rolls back otherwise. Nesting is rejected with
// ErrNestedTransaction.
//
// # Result Rows
//
// Rows are returned as *queryir.Columns in result-set column order. Text
// protocol values are converted by declared column type: integers to int64,
// FLOAT and DOUBLE to float64, binary types stay []byte, DECIMAL and text
// types become string. DATETIME and TIMESTAMP arrive as time.Time because
// parseTime is always enabled.
//
// # Query Log
//
// Every statement is logged through slog with its SQL, bindings and
// duration. Failures log at error level. Benchmark rules add a "benchmark"
// attribute naming the largest threshold the duration reached.
package store
