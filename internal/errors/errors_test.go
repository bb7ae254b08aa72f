package errors_test

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/chanomhub/gamedl/internal/errors"
)

func TestErrorString(t *testing.T) {
	e := &errors.Error{
		Err:      stdErrors.New("underlying error"),
		Category: errors.CategoryIO,
		Op:       "write state.json",
	}
	expected := "[IO] write state.json: underlying error"
	if e.Error() != expected {
		t.Errorf("expected %q, got %q", expected, e.Error())
	}

	e2 := errors.NewNotFoundError("cancel", "d3")
	expected2 := "[NOT_FOUND] cancel d3: no active download found"
	if e2.Error() != expected2 {
		t.Errorf("expected %q, got %q", expected2, e2.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	baseErr := stdErrors.New("disk full")
	e := errors.NewPersistenceError("active_downloads.json", baseErr)
	if !errors.Is(e, baseErr) {
		t.Errorf("expected %v to wrap %v", e, baseErr)
	}
}

func TestPredicates(t *testing.T) {
	base := stdErrors.New("boom")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", errors.NewNotFoundError("cancel", "x"), errors.IsNotFound},
		{"lock", errors.NewLockError("update", "x", errors.ErrRegistryClosed), errors.IsLock},
		{"spawn", errors.NewSpawnError("helper", base), errors.IsSpawn},
		{"malformed", errors.NewMalformedError("garbage", base), errors.IsMalformed},
		{"persistence", errors.NewPersistenceError("state", base), errors.IsPersistence},
		{"invalid", errors.NewInvalidError("start", "", base), errors.IsInvalid},
		{"wrapped persistence", fmt.Errorf("cancel: %w", errors.NewPersistenceError("state", base)), errors.IsPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("predicate returned false for %v", tt.err)
			}
		})
	}

	if errors.IsNotFound(nil) {
		t.Errorf("IsNotFound(nil) should be false")
	}
	if errors.IsPersistence(base) {
		t.Errorf("plain error should not be a persistence error")
	}
}

func TestCategoryOf(t *testing.T) {
	if got := errors.CategoryOf(stdErrors.New("plain")); got != errors.CategoryUnexpected {
		t.Errorf("expected %s, got %s", errors.CategoryUnexpected, got)
	}
	if got := errors.CategoryOf(errors.NewSpawnError("helper", errors.ErrBinaryNotFound)); got != errors.CategorySpawn {
		t.Errorf("expected %s, got %s", errors.CategorySpawn, got)
	}
}
