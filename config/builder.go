package config

import (
	"chimestock"
)

// BuildOptions converts parsed configuration into Store options.
//
// The returned options carry everything except the notifier, which the
// caller constructs once credentials are complete (the CLI may still need
// to prompt for them). URLs are not part of the options either; they are
// added with Store.Add so that the baseline refresh happens under the
// caller's context.
func BuildOptions(cfg *Config) []chimestock.Option {
	return []chimestock.Option{
		chimestock.WithInterval(cfg.PollInterval.Duration()),
		chimestock.WithTimeout(cfg.Timeout.Duration()),
		chimestock.WithMaxConcurrency(cfg.MaxConcurrency),
		chimestock.WithMarker(cfg.Marker),
		chimestock.WithDebug(cfg.Debug),
	}
}
