// Package providers contains the concrete collaborators of the reporting
// scheduler: permissions, location, session and push token.
package providers

import (
	"context"

	"github.com/edgard/geonotify/internal/reporter"
)

// StaticPermissions reports permissions granted through configuration. On a
// headless device there is no OS prompt, so the operator grants them up
// front.
type StaticPermissions struct {
	Location      bool
	Notifications bool
}

var _ reporter.PermissionChecker = (*StaticPermissions)(nil)

// CheckAll returns the configured permissions.
func (p *StaticPermissions) CheckAll(ctx context.Context) (reporter.Permissions, error) {
	if err := ctx.Err(); err != nil {
		return reporter.Permissions{}, err
	}
	return reporter.Permissions{Location: p.Location, Notifications: p.Notifications}, nil
}
