// Package appid holds the application identity used for help text,
// environment prefixes, and XDG directory names.
package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName  = "handlescan"
	EnvPrefix   = "HANDLESCAN_"
	ConfigName  = "handlescan"
	Vendor      = "namelens"
	Description = "Check whether a username is already claimed across popular web services"
)

// Get returns the handlescan identity. It never consults the filesystem,
// so standalone binaries behave the same inside and outside a checkout.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return &appidentity.Identity{
		Vendor:      Vendor,
		BinaryName:  BinaryName,
		EnvPrefix:   EnvPrefix,
		ConfigName:  ConfigName,
		Description: Description,
	}, nil
}
