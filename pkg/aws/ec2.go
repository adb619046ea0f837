package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const (
	DefaultCreatorTag   = "creator-env"
	DefaultRequesterTag = "requester"
	DefaultMinAge       = 6 * time.Hour
	DefaultWaitTimeout  = 10 * time.Minute

	terminateBatchSize = 500
)

// EC2API is the part of the EC2 client the sweeper calls.
type EC2API interface {
	ec2.DescribeInstancesAPIClient
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

type Config struct {
	Region       string
	Profile      string
	Endpoint     string
	CreatorTag   string
	RequesterTag string
	Env          string
	Requester    string
	MinAge       time.Duration
}

// NewEC2Client builds a client from the default credential chain.
func NewEC2Client(ctx context.Context, cfg Config) (*ec2.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return ec2.NewFromConfig(awsCfg, func(o *ec2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = awssdk.String(cfg.Endpoint)
		}
	}), nil
}

// Instance is a fixture instance selected for the sweep.
type Instance struct {
	ID         string
	Name       string
	State      string
	LaunchTime time.Time
}

type SweepOptions struct {
	DryRun      bool
	Wait        bool
	WaitTimeout time.Duration
}

type SweepReport struct {
	Stale      []Instance
	Terminated []string
}

type Sweeper struct {
	api EC2API
	cfg Config
	now func() time.Time
}

func NewSweeper(api EC2API, cfg Config) *Sweeper {
	if cfg.CreatorTag == "" {
		cfg.CreatorTag = DefaultCreatorTag
	}
	if cfg.RequesterTag == "" {
		cfg.RequesterTag = DefaultRequesterTag
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = DefaultMinAge
	}
	return &Sweeper{api: api, cfg: cfg, now: time.Now}
}

// Stale returns the tagged instances launched before now-MinAge that are not terminated.
func (s *Sweeper) Stale(ctx context.Context) ([]Instance, error) {
	if s.cfg.Env == "" || s.cfg.Requester == "" {
		return nil, srvErrors.NewInvalidConfigurationError("aws", "env and requester tags are required")
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: awssdk.String("tag:" + s.cfg.CreatorTag), Values: []string{s.cfg.Env}},
			{Name: awssdk.String("tag:" + s.cfg.RequesterTag), Values: []string{s.cfg.Requester}},
			{Name: awssdk.String("instance-state-name"), Values: []string{
				string(ec2types.InstanceStateNamePending),
				string(ec2types.InstanceStateNameRunning),
				string(ec2types.InstanceStateNameStopping),
				string(ec2types.InstanceStateNameStopped),
			}},
		},
	}

	cutoff := s.now().Add(-s.cfg.MinAge)

	var out []Instance
	p := ec2.NewDescribeInstancesPaginator(s.api, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, r := range page.Reservations {
			for _, i := range r.Instances {
				if i.State != nil && i.State.Name == ec2types.InstanceStateNameTerminated {
					continue
				}
				if i.LaunchTime == nil || !i.LaunchTime.Before(cutoff) {
					continue
				}
				out = append(out, toInstance(i))
			}
		}
	}

	sort.Slice(out, func(a, b int) bool { return out[a].LaunchTime.Before(out[b].LaunchTime) })
	return out, nil
}

// Sweep terminates the stale instances. With DryRun it only lists them.
func (s *Sweeper) Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	log := zap.S().Named("aws")

	stale, err := s.Stale(ctx)
	if err != nil {
		return nil, err
	}
	report := &SweepReport{Stale: stale}

	if opts.DryRun || len(stale) == 0 {
		log.Infow("stale instances", "count", len(stale), "dry_run", opts.DryRun)
		return report, nil
	}

	var errs error
	for start := 0; start < len(stale); start += terminateBatchSize {
		end := min(start+terminateBatchSize, len(stale))
		ids := make([]string, 0, end-start)
		for _, i := range stale[start:end] {
			ids = append(ids, i.ID)
		}

		res, err := s.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to terminate %v: %w", ids, err))
			continue
		}
		for _, c := range res.TerminatingInstances {
			report.Terminated = append(report.Terminated, awssdk.ToString(c.InstanceId))
		}
	}
	log.Infow("instances terminating", "ids", report.Terminated)

	if opts.Wait && len(report.Terminated) > 0 {
		timeout := opts.WaitTimeout
		if timeout <= 0 {
			timeout = DefaultWaitTimeout
		}
		w := ec2.NewInstanceTerminatedWaiter(s.api, func(o *ec2.InstanceTerminatedWaiterOptions) {
			o.MinDelay = time.Second
			o.MaxDelay = 15 * time.Second
		})
		err := w.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: report.Terminated}, timeout)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("instances did not terminate: %w", err))
		}
	}

	return report, errs
}

func toInstance(i ec2types.Instance) Instance {
	out := Instance{
		ID:         awssdk.ToString(i.InstanceId),
		LaunchTime: awssdk.ToTime(i.LaunchTime),
	}
	if i.State != nil {
		out.State = string(i.State.Name)
	}
	for _, t := range i.Tags {
		if awssdk.ToString(t.Key) == "Name" {
			out.Name = awssdk.ToString(t.Value)
		}
	}
	return out
}
