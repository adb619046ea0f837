package client

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-version"
)

type versionResponse struct {
	Version string `json:"version"`
}

// ServerVersion reads the control plane build version.
func (c *Client) ServerVersion(ctx context.Context) (*version.Version, error) {
	var vr versionResponse
	if err := c.GetJSON(ctx, VersionPath, nil, &vr); err != nil {
		return nil, err
	}
	v, err := version.NewVersion(vr.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server version %q: %w", vr.Version, err)
	}
	return v, nil
}

// RequireVersion fails unless the server version satisfies constraint (e.g. ">= 1.4, < 2").
func (c *Client) RequireVersion(ctx context.Context, constraint string) (*version.Version, error) {
	cs, err := version.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	if !cs.Check(v) {
		return v, fmt.Errorf("server version %s does not satisfy %q", v, constraint)
	}
	return v, nil
}
