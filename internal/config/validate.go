package config

import (
	"fmt"
	"time"

	"github.com/asaskevich/govalidator"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

// Validate checks the sections every command relies on. Sections used by a
// single command are checked by that command through the Validate* helpers.
func (c *Configuration) Validate() error {
	return multierr.Combine(
		c.ValidateBackend(),
		c.validatePolling(),
		c.validateTransport(),
		c.validateLog(),
	)
}

func (c *Configuration) ValidateBackend() error {
	var errs error
	if !isURL(c.Backend.URL) {
		errs = multierr.Append(errs, invalid("backend-url", "%q is not a valid url", c.Backend.URL))
	}
	if c.Auth.StaticToken == "" && c.Auth.ClientID != "" {
		if !isURL(c.Auth.TokenURL) {
			errs = multierr.Append(errs, invalid("token-url", "%q is not a valid url", c.Auth.TokenURL))
		}
		if c.Auth.ClientSecret == "" {
			errs = multierr.Append(errs, invalid("client-secret", "required with client-id"))
		}
	}
	return errs
}

func (c *Configuration) ValidateVSphere() error {
	var errs error
	if !isURL(c.VSphere.URL) {
		errs = multierr.Append(errs, invalid("vsphere-url", "%q is not a valid url", c.VSphere.URL))
	}
	if c.VSphere.Pattern == "" {
		errs = multierr.Append(errs, invalid("vsphere-pattern", "must not be empty"))
	}
	if c.VSphere.Workers < 1 {
		errs = multierr.Append(errs, invalid("vsphere-workers", "must be positive"))
	}
	return errs
}

func (c *Configuration) ValidateAWS() error {
	var errs error
	if c.AWS.Env == "" {
		errs = multierr.Append(errs, invalid("aws-env", "required"))
	}
	if c.AWS.Requester == "" {
		errs = multierr.Append(errs, invalid("aws-requester", "required"))
	}
	if c.AWS.Endpoint != "" && !isURL(c.AWS.Endpoint) {
		errs = multierr.Append(errs, invalid("aws-endpoint", "%q is not a valid url", c.AWS.Endpoint))
	}
	errs = multierr.Append(errs, positive("aws-min-age", c.AWS.MinAge))
	return errs
}

func (c *Configuration) ValidateTestRail() error {
	tr := c.Report.TestRail
	var errs error
	if !isURL(tr.Host) {
		errs = multierr.Append(errs, invalid("testrail-host", "%q is not a valid url", tr.Host))
	}
	if tr.Username == "" || tr.Password == "" {
		errs = multierr.Append(errs, invalid("testrail-username", "username and password are required"))
	}
	if tr.ProjectID < 1 {
		errs = multierr.Append(errs, invalid("testrail-project-id", "must be positive"))
	}
	return errs
}

func (c *Configuration) ValidateMock() error {
	var errs error
	if c.Mock.Mode != MockModeDev && c.Mock.Mode != MockModeProd {
		errs = multierr.Append(errs, invalid("mock-mode", "must be %q or %q", MockModeDev, MockModeProd))
	}
	if c.Mock.ErrorRate < 0 || c.Mock.ErrorRate > 1 {
		errs = multierr.Append(errs, invalid("mock-error-rate", "must be within [0,1]"))
	}
	if c.Mock.Steps < 1 {
		errs = multierr.Append(errs, invalid("mock-steps", "must be positive"))
	}
	if !govalidator.IsSemver(c.Mock.Version) {
		errs = multierr.Append(errs, invalid("mock-version", "%q is not a semantic version", c.Mock.Version))
	}
	return errs
}

func (c *Configuration) validatePolling() error {
	var errs error
	errs = multierr.Append(errs, positive("poll-interval", c.Polling.Interval))
	errs = multierr.Append(errs, positive("poll-timeout", c.Polling.Timeout))
	errs = multierr.Append(errs, positive("root-poll-interval", c.Polling.RootInterval))
	errs = multierr.Append(errs, positive("root-timeout", c.Polling.RootTimeout))
	if c.Polling.Workers < 1 {
		errs = multierr.Append(errs, invalid("workers", "must be positive"))
	}
	return errs
}

func (c *Configuration) validateTransport() error {
	var errs error
	if c.Transport.MaxTries < 1 {
		errs = multierr.Append(errs, invalid("max-tries", "must be positive"))
	}
	errs = multierr.Append(errs, positive("request-timeout", c.Transport.RequestTimeout))
	if c.Transport.QPS < 0 {
		errs = multierr.Append(errs, invalid("qps", "must not be negative"))
	}
	return errs
}

func (c *Configuration) validateLog() error {
	var errs error
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, invalid("log-level", "%v", err))
	}
	if c.Log.Format != LogFormatConsole && c.Log.Format != LogFormatJSON {
		errs = multierr.Append(errs, invalid("log-format", "must be %q or %q", LogFormatConsole, LogFormatJSON))
	}
	return errs
}

func isURL(s string) bool {
	return s != "" && govalidator.IsURL(s)
}

func positive(field string, d time.Duration) error {
	if d <= 0 {
		return invalid(field, "must be a positive duration")
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return srvErrors.NewInvalidConfigurationError(field, fmt.Sprintf(format, args...))
}
