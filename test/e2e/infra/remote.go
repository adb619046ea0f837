package infra

import "errors"

var ErrUnsupported = errors.New("not supported by a remote control plane")

// RemoteInfraManager targets an externally managed backend.
type RemoteInfraManager struct {
	endpoints Endpoints
}

func NewRemoteInfraManager(e Endpoints) *RemoteInfraManager {
	return &RemoteInfraManager{endpoints: e}
}

func (r *RemoteInfraManager) Start() error { return nil }
func (r *RemoteInfraManager) Stop() error  { return nil }
func (r *RemoteInfraManager) Local() bool  { return false }

func (r *RemoteInfraManager) Endpoints() Endpoints {
	return r.endpoints
}

func (r *RemoteInfraManager) SetErrorRate(float64) error {
	return ErrUnsupported
}
