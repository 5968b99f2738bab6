package pgutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/domain"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrAlreadyExists},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, domain.ErrNotFound},
		{"fk", &pgconn.PgError{Code: "23503"}, domain.ErrNotFound},
		{"other", other, other},
	}
	for _, tc := range cases {
		if got := Translate(tc.in); !errors.Is(got, tc.want) && got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "orders_idempotency_idx"}
	if !IsUniqueViolation(err, "") || !IsUniqueViolation(err, "orders_idempotency_idx") {
		t.Fatalf("expected unique violation match")
	}
	if IsUniqueViolation(err, "other_idx") {
		t.Fatalf("constraint name must be honoured")
	}
	if IsUniqueViolation(errors.New("x"), "") {
		t.Fatalf("plain error is not a unique violation")
	}
}
