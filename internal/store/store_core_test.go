package store

import (
	"context"
	"errors"
	"testing"
)

type codedErr int

func (e codedErr) Error() string { return "sqlite error" }
func (e codedErr) Code() int     { return int(e) }

func TestRetryOnBusyRetriesLockedDatabase(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryOnBusyGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		return codedErr(sqliteBusyCode)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != busyRetryAttempts {
		t.Fatalf("attempts = %d, want %d", attempts, busyRetryAttempts)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	sentinel := errors.New("constraint failed")
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestIsSQLiteBusyMatchesExtendedCodes(t *testing.T) {
	// SQLITE_BUSY_SNAPSHOT = 517
	if !isSQLiteBusy(codedErr(517)) {
		t.Fatal("expected extended busy code to match")
	}
	if isSQLiteBusy(codedErr(19)) {
		t.Fatal("constraint code must not match")
	}
}
