package memblob

import (
	"flag"

	"xsign.co/sealvault/blob"
	"xsign.co/sealvault/blob/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:          "mem",
		Description:   "In-memory blob store (contents lost on exit)",
		Usage:         registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (blob.Store, func() error, error) {
			return New(), nil, nil
		},
	})
}
