package infra

// InfraManager abstracts the control plane the e2e specs run against.
// Mock: an in-process control plane started and stopped by the suite.
// Remote: a real backend managed externally; Start and Stop are no-ops.
type InfraManager interface {
	Start() error
	Stop() error
	Endpoints() Endpoints
	// SetErrorRate changes the fraction of requests answered with 503.
	// Remote backends return ErrUnsupported.
	SetErrorRate(rate float64) error
	// Local reports whether the specs may rely on mock-only behavior.
	Local() bool
}

// Endpoints are the addresses and credentials of the control plane.
type Endpoints struct {
	BackendURL   string
	TokenURL     string
	ClientID     string
	ClientSecret string
	StaticToken  string
}
