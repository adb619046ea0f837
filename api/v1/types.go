package v1

import (
	"time"

	"github.com/dscc-qa/backup-harness/pkg/schedule"
)

// Resource is an item of a backup-recovery or hybrid-cloud collection.
type Resource struct {
	Id          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	ResourceUri string         `json:"resourceUri"`
	State       string         `json:"state"`
	CustomerId  string         `json:"customerId,omitempty"`
	Generation  int            `json:"generation"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type ResourceList struct {
	Items  []Resource `json:"items"`
	Count  int        `json:"count"`
	Offset int        `json:"offset"`
	Total  int        `json:"total"`
}

// ResourceRequest is the body of a create or update call.
type ResourceRequest struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type ProtectionJob struct {
	Id        string            `json:"id"`
	PolicyId  string            `json:"policyId"`
	AssetUri  string            `json:"assetUri"`
	AssetName string            `json:"assetName,omitempty"`
	Schedule  schedule.Schedule `json:"schedule"`
	NextRunAt time.Time         `json:"nextRunAt"`
	Runs      int               `json:"runs"`
}

type ProtectionJobRequest struct {
	PolicyId  string            `json:"policyId"`
	AssetUri  string            `json:"assetUri"`
	AssetName string            `json:"assetName,omitempty"`
	Schedule  schedule.Schedule `json:"schedule"`
}

type ProtectionJobList struct {
	Items  []ProtectionJob `json:"items"`
	Count  int             `json:"count"`
	Offset int             `json:"offset"`
	Total  int             `json:"total"`
}

// TaskAccepted is returned alongside the Location header of an accepted write.
type TaskAccepted struct {
	TaskUri string `json:"taskUri"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode,omitempty"`
	TraceId   string `json:"traceId,omitempty"`
}
