package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "answers_game_id_user_id_question_id_key"}
	if !isUniqueViolation(unique) {
		t.Fatalf("expected direct unique violation to match")
	}
	if !isUniqueViolation(fmt.Errorf("insert answer: %w", unique)) {
		t.Fatalf("expected wrapped unique violation to match")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Fatalf("plain errors must not match")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(fmt.Errorf("insert answer: %w", &pgconn.PgError{Code: foreignKeyViolation})) {
		t.Fatalf("expected wrapped foreign key violation to match")
	}
	if isForeignKeyViolation(&pgconn.PgError{Code: uniqueViolation}) {
		t.Fatalf("unique violation is not a foreign key violation")
	}
}
