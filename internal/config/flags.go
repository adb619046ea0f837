package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes the environment variable of every flag: --backend-url
// reads HARNESS_BACKEND_URL.
const EnvPrefix = "harness"

// RegisterGlobalFlags binds the flags shared by all commands to cfg.
func RegisterGlobalFlags(fs *pflag.FlagSet, cfg *Configuration) {
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "path to a yaml/json/toml file with flag values")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "path to a .env file with credentials")

	fs.StringVar(&cfg.Backend.URL, "backend-url", cfg.Backend.URL, "control plane base url")
	fs.StringVar(&cfg.Backend.VersionConstraint, "backend-version", cfg.Backend.VersionConstraint, "required backend version constraint, e.g. \">= 2.3\"")
	fs.StringVar(&cfg.Backend.UserID, "user-id", cfg.Backend.UserID, "restrict task listings to this user id")

	fs.StringVar(&cfg.Auth.TokenURL, "token-url", cfg.Auth.TokenURL, "OAuth2 token endpoint")
	fs.StringVar(&cfg.Auth.ClientID, "client-id", cfg.Auth.ClientID, "OAuth2 client id")
	fs.StringVar(&cfg.Auth.ClientSecret, "client-secret", cfg.Auth.ClientSecret, "OAuth2 client secret")
	fs.StringVar(&cfg.Auth.StaticToken, "static-token", cfg.Auth.StaticToken, "pre-issued bearer token; overrides client credentials")
	fs.StringSliceVar(&cfg.Auth.Scopes, "scopes", cfg.Auth.Scopes, "OAuth2 scopes")

	fs.DurationVar(&cfg.Polling.Interval, "poll-interval", cfg.Polling.Interval, "first task poll interval")
	fs.DurationVar(&cfg.Polling.Timeout, "poll-timeout", cfg.Polling.Timeout, "task wait timeout")
	fs.DurationVar(&cfg.Polling.RootInterval, "root-poll-interval", cfg.Polling.RootInterval, "root task search interval")
	fs.DurationVar(&cfg.Polling.RootTimeout, "root-timeout", cfg.Polling.RootTimeout, "root task search timeout")
	fs.DurationVar(&cfg.Polling.ChildTimeout, "child-timeout", cfg.Polling.ChildTimeout, "timeout per child task")
	fs.DurationVar(&cfg.Polling.Lookback, "lookback", cfg.Polling.Lookback, "how far back task searches look")
	fs.IntVar(&cfg.Polling.Workers, "workers", cfg.Polling.Workers, "concurrent task waits")
	fs.BoolVar(&cfg.Polling.LogTaskResult, "log-task-result", cfg.Polling.LogTaskResult, "log the final task document after each wait")

	fs.UintVar(&cfg.Transport.MaxTries, "max-tries", cfg.Transport.MaxTries, "attempts per request on transient failures")
	fs.DurationVar(&cfg.Transport.RetryInterval, "retry-interval", cfg.Transport.RetryInterval, "delay between request attempts")
	fs.DurationVar(&cfg.Transport.RequestTimeout, "request-timeout", cfg.Transport.RequestTimeout, "timeout of a single request")
	fs.Float64Var(&cfg.Transport.QPS, "qps", cfg.Transport.QPS, "request rate limit; 0 disables it")
	fs.IntVar(&cfg.Transport.Burst, "burst", cfg.Transport.Burst, "request rate limit burst")

	fs.StringVar(&cfg.Ledger.Path, "ledger", cfg.Ledger.Path, "DuckDB run ledger path; empty disables recording")
	fs.StringVar(&cfg.Ledger.RunName, "run-name", cfg.Ledger.RunName, "ledger run name")
	fs.StringVar(&cfg.Ledger.BuildURL, "build-url", cfg.Ledger.BuildURL, "CI build url stored with the run")

	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: console or json")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "also write logs to this rotating file")
}

func RegisterVSphereFlags(fs *pflag.FlagSet, cfg *Configuration) {
	fs.StringVar(&cfg.VSphere.URL, "vsphere-url", cfg.VSphere.URL, "vCenter sdk url")
	fs.StringVar(&cfg.VSphere.Username, "vsphere-username", cfg.VSphere.Username, "vCenter username")
	fs.StringVar(&cfg.VSphere.Password, "vsphere-password", cfg.VSphere.Password, "vCenter password")
	fs.BoolVar(&cfg.VSphere.Insecure, "vsphere-insecure", cfg.VSphere.Insecure, "skip vCenter certificate verification")
	fs.StringVar(&cfg.VSphere.Datacenter, "vsphere-datacenter", cfg.VSphere.Datacenter, "datacenter; default datacenter when empty")
	fs.StringVar(&cfg.VSphere.Pattern, "vsphere-pattern", cfg.VSphere.Pattern, "glob of VM names to sweep")
	fs.IntVar(&cfg.VSphere.Workers, "vsphere-workers", cfg.VSphere.Workers, "concurrent VM destroys")
}

func RegisterAWSFlags(fs *pflag.FlagSet, cfg *Configuration) {
	fs.StringVar(&cfg.AWS.Region, "aws-region", cfg.AWS.Region, "AWS region")
	fs.StringVar(&cfg.AWS.Profile, "aws-profile", cfg.AWS.Profile, "shared config profile")
	fs.StringVar(&cfg.AWS.Endpoint, "aws-endpoint", cfg.AWS.Endpoint, "EC2 endpoint override")
	fs.StringVar(&cfg.AWS.CreatorTag, "aws-creator-tag", cfg.AWS.CreatorTag, "tag key holding the creator environment")
	fs.StringVar(&cfg.AWS.RequesterTag, "aws-requester-tag", cfg.AWS.RequesterTag, "tag key holding the requester")
	fs.StringVar(&cfg.AWS.Env, "aws-env", cfg.AWS.Env, "creator environment tag value")
	fs.StringVar(&cfg.AWS.Requester, "aws-requester", cfg.AWS.Requester, "requester tag value")
	fs.DurationVar(&cfg.AWS.MinAge, "aws-min-age", cfg.AWS.MinAge, "only sweep instances launched longer ago")
}

func RegisterReportFlags(fs *pflag.FlagSet, cfg *Configuration) {
	fs.IntVar(&cfg.Report.Slowest, "slowest", cfg.Report.Slowest, "number of slowest tasks in the summary")
	fs.StringVar(&cfg.Report.TestRail.Host, "testrail-host", cfg.Report.TestRail.Host, "TestRail url")
	fs.StringVar(&cfg.Report.TestRail.Username, "testrail-username", cfg.Report.TestRail.Username, "TestRail user")
	fs.StringVar(&cfg.Report.TestRail.Password, "testrail-password", cfg.Report.TestRail.Password, "TestRail password or api key")
	fs.IntVar(&cfg.Report.TestRail.ProjectID, "testrail-project-id", cfg.Report.TestRail.ProjectID, "TestRail project id")
	fs.IntVar(&cfg.Report.TestRail.SuiteID, "testrail-suite-id", cfg.Report.TestRail.SuiteID, "TestRail suite id")
	fs.StringVar(&cfg.Report.TestRail.Milestone, "testrail-milestone", cfg.Report.TestRail.Milestone, "TestRail milestone, created when missing")
	fs.BoolVar(&cfg.Report.TestRail.BetaAPI, "testrail-beta-api", cfg.Report.TestRail.BetaAPI, "use the paginated TestRail api")
}

func RegisterMockFlags(fs *pflag.FlagSet, cfg *Configuration) {
	fs.StringVar(&cfg.Mock.Addr, "mock-addr", cfg.Mock.Addr, "listen address")
	fs.StringVar(&cfg.Mock.Mode, "mock-mode", cfg.Mock.Mode, "server mode: dev or prod")
	fs.StringVar(&cfg.Mock.Version, "mock-version", cfg.Mock.Version, "version reported by GET /version")
	fs.IntVar(&cfg.Mock.Workers, "mock-workers", cfg.Mock.Workers, "task engine workers")
	fs.Float64Var(&cfg.Mock.ErrorRate, "mock-error-rate", cfg.Mock.ErrorRate, "fraction of api requests answered with 503")
	fs.StringVar(&cfg.Mock.FailPattern, "mock-fail-pattern", cfg.Mock.FailPattern, "tasks whose display name contains this fail")
	fs.DurationVar(&cfg.Mock.StepLatency, "mock-step-latency", cfg.Mock.StepLatency, "delay between task progress steps")
	fs.IntVar(&cfg.Mock.Steps, "mock-steps", cfg.Mock.Steps, "progress steps per task")
	fs.BoolVar(&cfg.Mock.Seed, "mock-seed", cfg.Mock.Seed, "create a sample policy and protection store on start")
}

// PreRunE resolves flag values in precedence order: command line, then
// environment (including the --env-file), then the --config file, then defaults.
func PreRunE(cfg *Configuration) cobrautil.CobraRunFunc {
	return cobrautil.CommandStack(
		func(cmd *cobra.Command, _ []string) error {
			return LoadEnvFile(cfg.EnvFile)
		},
		cobrautil.SyncViperPreRunE(EnvPrefix),
		func(cmd *cobra.Command, _ []string) error {
			return ApplyConfigFile(cmd.Flags(), cfg.ConfigFile)
		},
	)
}

// LoadEnvFile exports the variables of a .env file without overriding the
// ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyConfigFile sets every flag that was not given explicitly from the
// file's key of the same name.
func ApplyConfigFile(fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		var value string
		switch f.Value.Type() {
		case "stringSlice":
			for i, s := range v.GetStringSlice(f.Name) {
				if i > 0 {
					value += ","
				}
				value += s
			}
		default:
			value = v.GetString(f.Name)
		}
		if err := fs.Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("config key %s: %w", f.Name, err))
		}
	})
	return multierr.Combine(errs...)
}
