package infra

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/mock"
	"github.com/dscc-qa/backup-harness/internal/services"
)

const (
	MockClientID     = "e2e"
	MockClientSecret = "e2e-secret"

	stopTimeout = 10 * time.Second
)

// MockInfraManager runs the mock control plane in-process on a random port.
type MockInfraManager struct {
	opts mock.Options
	cp   *mock.ControlPlane
}

func NewMockInfraManager(faults services.FaultConfig) *MockInfraManager {
	opts := mock.DefaultOptions()
	opts.Clients[MockClientID] = MockClientSecret
	opts.Faults = faults
	return &MockInfraManager{opts: opts}
}

func (m *MockInfraManager) Start() error {
	cp, err := mock.New(m.opts)
	if err != nil {
		return err
	}
	cp.Start()
	m.cp = cp
	zap.S().Named("e2e").Infow("mock control plane started", "url", cp.URL())
	return nil
}

func (m *MockInfraManager) Stop() error {
	if m.cp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	err := m.cp.Stop(ctx)
	m.cp = nil
	return err
}

func (m *MockInfraManager) Endpoints() Endpoints {
	if m.cp == nil {
		return Endpoints{}
	}
	return Endpoints{
		BackendURL:   m.cp.URL(),
		TokenURL:     m.cp.TokenURL(),
		ClientID:     MockClientID,
		ClientSecret: MockClientSecret,
	}
}

func (m *MockInfraManager) SetErrorRate(rate float64) error {
	if m.cp == nil {
		return errors.New("mock control plane not started")
	}
	m.cp.Faults.SetErrorRate(rate)
	return nil
}

func (m *MockInfraManager) Local() bool { return true }
