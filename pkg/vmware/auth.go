package vmware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/types"
	"k8s.io/apimachinery/pkg/util/sets"
)

// SweepPrivileges are required on each VM before a sweep may destroy it.
var SweepPrivileges = []string{
	"VirtualMachine.Interact.PowerOff",
	"VirtualMachine.Inventory.Delete",
}

type MissingPrivilegesError struct {
	User    string
	Entity  string
	Missing []string
}

func (e *MissingPrivilegesError) Error() string {
	return fmt.Sprintf("user %s lacks %s on %s", e.User, strings.Join(e.Missing, ", "), e.Entity)
}

func IsMissingPrivilegesError(err error) bool {
	var e *MissingPrivilegesError
	return errors.As(err, &e)
}

// CheckPrivileges returns a MissingPrivilegesError naming, in sorted order,
// every privilege in required that user does not hold on ref.
func CheckPrivileges(ctx context.Context, c *vim25.Client, ref types.ManagedObjectReference, user string, required ...string) error {
	results, err := object.NewAuthorizationManager(c).FetchUserPrivilegeOnEntities(ctx, []types.ManagedObjectReference{ref}, user)
	if err != nil {
		return fmt.Errorf("fetching privileges of %s on %s: %w", user, ref.Value, err)
	}

	granted := sets.New[string]()
	for _, r := range results {
		granted.Insert(r.Privileges...)
	}

	missing := sets.New(required...).Difference(granted)
	if missing.Len() > 0 {
		return &MissingPrivilegesError{User: user, Entity: ref.Value, Missing: sets.List(missing)}
	}
	return nil
}

func (m *VMManager) ValidatePrivileges(ctx context.Context, moid string, required []string) error {
	return CheckPrivileges(ctx, m.client.Client, refFromMoid(moid), m.username, required...)
}
