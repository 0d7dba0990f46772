package gate

import (
	"context"
	"crypto/x509"
	"database/sql"
	"fmt"
	"sync"
)

// StartOutcome is the result of one best-effort start attempt. Fresh and
// already-running both count as success; only Failed excludes the component.
type StartOutcome int

const (
	StartedFresh StartOutcome = iota
	AlreadyRunning
	StartFailed
)

func (o StartOutcome) String() string {
	switch o {
	case StartedFresh:
		return "started"
	case AlreadyRunning:
		return "already running"
	case StartFailed:
		return "failed"
	}
	return "unknown"
}

// Service is an auxiliary runtime component the migration run depends on.
// Services are started in order before any repository pool; a failed start
// is logged and never aborts the gate.
type Service interface {
	Name() string
	Start(ctx context.Context) (StartOutcome, error)
}

// ServiceFunc adapts a function to the Service interface.
func ServiceFunc(name string, fn func(ctx context.Context) (StartOutcome, error)) Service {
	return &funcService{name: name, fn: fn}
}

type funcService struct {
	name string
	fn   func(ctx context.Context) (StartOutcome, error)
}

func (s *funcService) Name() string { return s.name }

func (s *funcService) Start(ctx context.Context) (StartOutcome, error) {
	return s.fn(ctx)
}

// NewTLSService returns a service that warms the system x509 root pool so
// that sslmode=verify-full connections don't pay the load on first dial.
func NewTLSService() Service {
	return &tlsService{}
}

type tlsService struct {
	mu   sync.Mutex
	pool *x509.CertPool
}

func (s *tlsService) Name() string { return "tls" }

func (s *tlsService) Start(ctx context.Context) (StartOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return AlreadyRunning, nil
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		return StartFailed, err
	}
	s.pool = pool
	return StartedFresh, nil
}

// NewDriverService returns a service that verifies the named database/sql
// driver is registered. Registration happens at import time, so the first
// successful check reports StartedFresh and later checks AlreadyRunning.
func NewDriverService(driver string) Service {
	return &driverService{driver: driver}
}

type driverService struct {
	driver string

	mu      sync.Mutex
	checked bool
}

func (s *driverService) Name() string { return "driver/" + s.driver }

func (s *driverService) Start(ctx context.Context) (StartOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range sql.Drivers() {
		if name == s.driver {
			if s.checked {
				return AlreadyRunning, nil
			}
			s.checked = true
			return StartedFresh, nil
		}
	}
	return StartFailed, fmt.Errorf("sql driver %q is not registered", s.driver)
}
