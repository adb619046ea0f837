package services

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	DefaultFailPattern = "fail"
	DefaultSteps       = 4
	DefaultStepLatency = 50 * time.Millisecond
)

type FaultConfig struct {
	// ErrorRate is the fraction of API requests answered with 503.
	ErrorRate float64
	// FailPattern forces tasks whose display name contains it to fail.
	FailPattern string
	// StepLatency is the time spent on each progress step.
	StepLatency time.Duration
	Steps       int
}

func DefaultFaultConfig() FaultConfig {
	return FaultConfig{
		FailPattern: DefaultFailPattern,
		StepLatency: DefaultStepLatency,
		Steps:       DefaultSteps,
	}
}

type FaultInjector struct {
	mu  sync.Mutex
	cfg FaultConfig
	rnd *rand.Rand
}

func NewFaultInjector(cfg FaultConfig) *FaultInjector {
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultSteps
	}
	return &FaultInjector{
		cfg: cfg,
		rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// Reject reports whether the next request should be answered with 503.
func (f *FaultInjector) Reject() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg.ErrorRate <= 0 {
		return false
	}
	return f.rnd.Float64() < f.cfg.ErrorRate
}

func (f *FaultInjector) ShouldFail(displayName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg.FailPattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(displayName), strings.ToLower(f.cfg.FailPattern))
}

func (f *FaultInjector) Steps() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.Steps, f.cfg.StepLatency
}

// SetErrorRate changes the rejection rate at runtime.
func (f *FaultInjector) SetErrorRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.ErrorRate = rate
}
