package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/roach88/mysqlstore/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewMockStore returns a Store backed by sqlmock. Expected SQL is compared
// exactly after whitespace is collapsed, so tests spell out the expanded
// statement with backtick-quoted identifiers.
//
// The store logs to DiscardLogger unless opts set another logger. Unmet
// expectations fail the test at cleanup.
func NewMockStore(t testing.TB, opts ...store.Option) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}

	all := append([]store.Option{store.WithLogger(DiscardLogger())}, opts...)
	s := store.New(db, all...)

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet database expectations: %v", err)
		}
		s.Close()
	})
	return s, mock
}
