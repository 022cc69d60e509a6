package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// newMock returns a *sql.DB backed by sqlmock.  Unmet expectations fail
// the test at cleanup.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		_ = db.Close()
	})
	return db, mock
}

// sqlText matches a statement containing s literally.
func sqlText(s string) string { return regexp.QuoteMeta(s) }

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

var bookCols = []string{"id", "title", "description", "image_url", "uploaded_by", "email", "created_at", "updated_at"}
