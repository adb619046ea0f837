package models

import (
	"time"

	"github.com/dscc-qa/backup-harness/pkg/schedule"
)

type ResourceKind string

const (
	KindProtectionPolicy  ResourceKind = "protection-policies"
	KindProtectionStore   ResourceKind = "protection-stores"
	KindProtectionStoreGW ResourceKind = "protection-store-gateways"
	KindCSPAccount        ResourceKind = "csp-accounts"
	KindProtectionJob     ResourceKind = "protection-jobs"
	KindBackup            ResourceKind = "backups"
)

const resourceKindTypeSeparator = "/"

// Kinds lists the collections served by the mock control plane.
var Kinds = []ResourceKind{
	KindProtectionPolicy,
	KindProtectionStore,
	KindProtectionStoreGW,
	KindCSPAccount,
	KindProtectionJob,
	KindBackup,
}

// Group returns the API group serving the kind.
func (k ResourceKind) Group() string {
	if k == KindCSPAccount {
		return "/hybrid-cloud/v1beta1"
	}
	return "/backup-recovery/v1beta1"
}

// Type is the resource type string reported on task source resources.
func (k ResourceKind) Type() string {
	if k == KindCSPAccount {
		return "hybrid-cloud" + resourceKindTypeSeparator + "csp-account"
	}
	return "backup-recovery" + resourceKindTypeSeparator + string(k)
}

func (k ResourceKind) URI(id string) string {
	return k.Group() + "/" + string(k) + "/" + id
}

type ResourceState string

const (
	ResourceStateCreating ResourceState = "CREATING"
	ResourceStateOK       ResourceState = "OK"
	ResourceStateDeleting ResourceState = "DELETING"
	ResourceStateError    ResourceState = "ERROR"
)

// Resource is an item of a mock control plane collection.
type Resource struct {
	ID         string
	Kind       ResourceKind
	Name       string
	State      ResourceState
	CustomerID string
	Generation int
	Attributes map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Resource) Ref() ResourceRef {
	return ResourceRef{ID: r.ID, Name: r.Name, Kind: r.Kind.Type(), URI: r.Kind.URI(r.ID)}
}

// ProtectionJob binds a policy schedule to an asset.
type ProtectionJob struct {
	ID        string
	PolicyID  string
	AssetURI  string
	AssetName string
	Schedule  schedule.Schedule
	NextRunAt time.Time
	Runs      int
}
