package vmware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/gobwas/glob"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"

	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

// Config locates a vCenter endpoint.
type Config struct {
	URL        string
	Username   string
	Password   string
	Insecure   bool
	Datacenter string
}

// VM is a virtual machine as listed by ListVMs.
type VM struct {
	Name       string
	MOID       string
	PowerState types.VirtualMachinePowerState
}

type VMManager struct {
	client   *govmomi.Client
	finder   *find.Finder
	username string
}

// NewVMManager logs into vCenter and scopes lookups to the configured
// datacenter, or to the default one when none is set.
func NewVMManager(ctx context.Context, cfg Config) (*VMManager, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid vCenter url %q: %w", cfg.URL, err)
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	c, err := govmomi.NewClient(ctx, u, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("failed to log in to vCenter %s: %w", u.Host, err)
	}
	zap.S().Named("vmware").Infow("logged in to vCenter", "host", u.Host)

	m, err := NewVMManagerFromClient(ctx, c, cfg.Username, cfg.Datacenter)
	if err != nil {
		_ = c.Logout(ctx)
		return nil, err
	}
	return m, nil
}

func NewVMManagerFromClient(ctx context.Context, c *govmomi.Client, username, datacenter string) (*VMManager, error) {
	f := find.NewFinder(c.Client, true)

	var (
		dc  *object.Datacenter
		err error
	)
	if datacenter != "" {
		dc, err = f.Datacenter(ctx, datacenter)
	} else {
		dc, err = f.DefaultDatacenter(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find datacenter: %w", err)
	}
	f.SetDatacenter(dc)

	return &VMManager{client: c, finder: f, username: username}, nil
}

func (m *VMManager) Logout(ctx context.Context) error {
	return m.client.Logout(ctx)
}

// ListVMs returns the VMs whose names match the glob pattern, sorted by name.
func (m *VMManager) ListVMs(ctx context.Context, pattern string) ([]VM, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, srvErrors.NewInvalidConfigurationError("pattern", err.Error())
	}

	vms, err := m.finder.VirtualMachineList(ctx, "*")
	if err != nil {
		var nf *find.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list virtual machines: %w", err)
	}

	var out []VM
	for _, vm := range vms {
		if !g.Match(vm.Name()) {
			continue
		}
		state, err := vm.PowerState(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read power state of %s: %w", vm.Name(), err)
		}
		out = append(out, VM{Name: vm.Name(), MOID: vm.Reference().Value, PowerState: state})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PowerOff powers the VM off unless it is already off.
func (m *VMManager) PowerOff(ctx context.Context, name string) error {
	vm, err := m.vm(ctx, name)
	if err != nil {
		return err
	}
	return m.powerOff(ctx, vm)
}

// Destroy powers the VM off when needed and removes it from inventory and disk.
func (m *VMManager) Destroy(ctx context.Context, name string) error {
	vm, err := m.vm(ctx, name)
	if err != nil {
		return err
	}
	if err := m.powerOff(ctx, vm); err != nil {
		return err
	}

	task, err := vm.Destroy(ctx)
	if err != nil {
		return fmt.Errorf("failed to destroy %s: %w", name, err)
	}
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("failed to destroy %s: %w", name, err)
	}

	zap.S().Named("vmware").Infow("vm destroyed", "name", name)
	return nil
}

func (m *VMManager) powerOff(ctx context.Context, vm *object.VirtualMachine) error {
	state, err := vm.PowerState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read power state of %s: %w", vm.Name(), err)
	}
	if state == types.VirtualMachinePowerStatePoweredOff {
		return nil
	}

	task, err := vm.PowerOff(ctx)
	if err != nil {
		return fmt.Errorf("failed to power off %s: %w", vm.Name(), err)
	}
	if err := task.Wait(ctx); err != nil {
		return fmt.Errorf("failed to power off %s: %w", vm.Name(), err)
	}

	zap.S().Named("vmware").Infow("vm powered off", "name", vm.Name())
	return nil
}

func (m *VMManager) vm(ctx context.Context, name string) (*object.VirtualMachine, error) {
	vm, err := m.finder.VirtualMachine(ctx, name)
	if err != nil {
		var nf *find.NotFoundError
		if errors.As(err, &nf) {
			return nil, srvErrors.NewResourceNotFoundError("vm", name)
		}
		return nil, err
	}
	return vm, nil
}

func refFromMoid(id string) types.ManagedObjectReference {
	return types.ManagedObjectReference{
		Type:  "VirtualMachine",
		Value: id,
	}
}
