package main

import (
	"io"

	"github.com/go-i2p/go-icp/lib/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// layerView shows an unset key as null.
type layerView struct {
	Enabled *bool `yaml:"enabled"`
	Port    *int  `yaml:"port"`
}

type effectiveView struct {
	Platform   layerView      `yaml:"platform"`
	Daemon     layerView      `yaml:"daemon"`
	Address    string         `yaml:"address"`
	RateLimit  float64        `yaml:"rate_limit"`
	RateBurst  int            `yaml:"rate_burst"`
	LazyDecode bool           `yaml:"lazy_decode"`
	CachedURLs []string       `yaml:"cached_urls"`
	Resolution resolutionView `yaml:"resolution"`
	Valid      bool           `yaml:"valid"`
	Problem    string         `yaml:"problem,omitempty"`
}

type resolutionView struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	Running bool `yaml:"would_run"`
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective ICP configuration and what it resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeConfig(cmd.OutOrStdout(), config.NewICPConfigFromViper(viper.GetViper()))
		},
	}
}

func viewOf(cfg *config.ICPConfig) effectiveView {
	r := cfg.Resolve()
	view := effectiveView{
		Platform:   layerView{Enabled: cfg.PlatformEnabled, Port: cfg.PlatformPort},
		Daemon:     layerView{Enabled: cfg.DaemonEnabled, Port: cfg.DaemonPort},
		Address:    cfg.Address,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		LazyDecode: cfg.LazyDecode,
		CachedURLs: cfg.CachedURLs,
		Resolution: resolutionView{Enabled: r.Enabled, Port: r.Port, Running: r.ShouldRun()},
		Valid:      true,
	}
	if err := config.Validate(cfg); err != nil {
		view.Valid = false
		view.Problem = err.Error()
	}
	return view
}

func writeConfig(w io.Writer, cfg *config.ICPConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]effectiveView{"icp": viewOf(cfg)}); err != nil {
		return err
	}
	return enc.Close()
}
