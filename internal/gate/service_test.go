package gate

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
)

func TestStartOutcomeString(t *testing.T) {
	for _, tc := range []struct {
		outcome StartOutcome
		want    string
	}{
		{StartedFresh, "started"},
		{AlreadyRunning, "already running"},
		{StartFailed, "failed"},
		{StartOutcome(42), "unknown"},
	} {
		if got := tc.outcome.String(); got != tc.want {
			t.Errorf("StartOutcome(%d).String() = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}

func TestTLSService(t *testing.T) {
	svc := NewTLSService()
	if svc.Name() != "tls" {
		t.Errorf("Name() = %q, want %q", svc.Name(), "tls")
	}

	outcome, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	if outcome != StartedFresh {
		t.Errorf("first Start() = %v, want StartedFresh", outcome)
	}

	outcome, err = svc.Start(context.Background())
	if err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if outcome != AlreadyRunning {
		t.Errorf("second Start() = %v, want AlreadyRunning", outcome)
	}
}

// stubDriver registers under a test-only name so the driver service has
// something to find.
type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("stub driver cannot connect")
}

func TestDriverService(t *testing.T) {
	sql.Register("gate_test_stub", stubDriver{})

	svc := NewDriverService("gate_test_stub")
	outcome, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	if outcome != StartedFresh {
		t.Errorf("first Start() = %v, want StartedFresh", outcome)
	}

	outcome, _ = svc.Start(context.Background())
	if outcome != AlreadyRunning {
		t.Errorf("second Start() = %v, want AlreadyRunning", outcome)
	}
}

func TestDriverService_MissingDriver(t *testing.T) {
	svc := NewDriverService("no_such_driver")
	outcome, err := svc.Start(context.Background())
	if outcome != StartFailed {
		t.Errorf("Start() = %v, want StartFailed", outcome)
	}
	if err == nil {
		t.Error("Start() error = nil, want registration error")
	}
}
