package config

import (
	"reflect"
	"sort"

	"github.com/spf13/viper"
)

// ICP configuration keys.
const (
	KeyPlatformEnabled  = "platform.icp.enabled"
	KeyPlatformPort     = "platform.icp.port"
	KeyDaemonEnabled    = "daemon.icp.enabled"
	KeyDaemonPort       = "daemon.icp.port"
	KeyDaemonAddress    = "daemon.icp.address"
	KeyDaemonRateLimit  = "daemon.icp.rate_limit"
	KeyDaemonRateBurst  = "daemon.icp.rate_burst"
	KeyDaemonLazyDecode = "daemon.icp.lazy_decode"
	KeyDaemonCachedURLs = "daemon.icp.cached_urls"
)

// NoPort is the port reported when no port resolves or ICP is stopped.
const NoPort = -1

// ICPConfig is an immutable snapshot of the ICP settings. A nil pointer
// field means the key was absent from its layer.
type ICPConfig struct {
	PlatformEnabled *bool
	PlatformPort    *int
	DaemonEnabled   *bool
	DaemonPort      *int

	// Address is the IPv4 address advertised as sender in ICP messages.
	Address string
	// RateLimit is the number of peer queries accepted per second.
	RateLimit float64
	// RateBurst is the number of peer queries accepted in a burst.
	RateBurst int
	// LazyDecode selects lazy decoding of received datagrams.
	LazyDecode bool
	// CachedURLs are reported as HIT by the built-in static cache.
	CachedURLs []string
}

// Resolution is the effective ICP state a configuration asks for.
type Resolution struct {
	Enabled bool
	// Port is NoPort when no port resolves.
	Port int
}

// ShouldRun reports whether the resolution asks for a bound listener.
func (r Resolution) ShouldRun() bool {
	return r.Enabled && r.Port != NoPort
}

// Resolve computes the effective state: ICP is enabled only when both the
// platform (default true) and the daemon (default false) enable it, and it
// listens on the daemon port, else the platform port. Resolve is pure.
func (c *ICPConfig) Resolve() Resolution {
	if c == nil {
		return Resolution{Port: NoPort}
	}
	platform := boolOr(c.PlatformEnabled, Defaults().ICP.PlatformEnabled)
	daemon := boolOr(c.DaemonEnabled, Defaults().ICP.DaemonEnabled)
	if !platform || !daemon {
		return Resolution{Port: NoPort}
	}
	switch {
	case c.DaemonPort != nil:
		return Resolution{Enabled: true, Port: *c.DaemonPort}
	case c.PlatformPort != nil:
		return Resolution{Enabled: true, Port: *c.PlatformPort}
	}
	return Resolution{Enabled: true, Port: NoPort}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// NewICPConfigFromViper reads the ICP settings from v, or from the global
// viper instance when v is nil.
func NewICPConfigFromViper(v *viper.Viper) *ICPConfig {
	if v == nil {
		v = viper.GetViper()
	}
	d := Defaults().ICP
	cfg := &ICPConfig{
		PlatformEnabled: optionalBool(v, KeyPlatformEnabled),
		PlatformPort:    optionalInt(v, KeyPlatformPort),
		DaemonEnabled:   optionalBool(v, KeyDaemonEnabled),
		DaemonPort:      optionalInt(v, KeyDaemonPort),
		Address:         d.Address,
		RateLimit:       d.RateLimit,
		RateBurst:       d.RateBurst,
		LazyDecode:      d.LazyDecode,
	}
	if v.IsSet(KeyDaemonAddress) {
		cfg.Address = v.GetString(KeyDaemonAddress)
	}
	if v.IsSet(KeyDaemonRateLimit) {
		cfg.RateLimit = v.GetFloat64(KeyDaemonRateLimit)
	}
	if v.IsSet(KeyDaemonRateBurst) {
		cfg.RateBurst = v.GetInt(KeyDaemonRateBurst)
	}
	if v.IsSet(KeyDaemonLazyDecode) {
		cfg.LazyDecode = v.GetBool(KeyDaemonLazyDecode)
	}
	cfg.CachedURLs = v.GetStringSlice(KeyDaemonCachedURLs)
	return cfg
}

func optionalBool(v *viper.Viper, key string) *bool {
	if !v.IsSet(key) {
		return nil
	}
	b := v.GetBool(key)
	return &b
}

func optionalInt(v *viper.Viper, key string) *int {
	if !v.IsSet(key) {
		return nil
	}
	i := v.GetInt(key)
	return &i
}

// ChangedKeys lists the keys whose values differ between prev and next,
// sorted. A nil snapshot compares as the zero ICPConfig.
func ChangedKeys(prev, next *ICPConfig) []string {
	if prev == nil {
		prev = &ICPConfig{}
	}
	if next == nil {
		next = &ICPConfig{}
	}
	var changed []string
	add := func(key string, differs bool) {
		if differs {
			changed = append(changed, key)
		}
	}
	add(KeyPlatformEnabled, !reflect.DeepEqual(prev.PlatformEnabled, next.PlatformEnabled))
	add(KeyPlatformPort, !reflect.DeepEqual(prev.PlatformPort, next.PlatformPort))
	add(KeyDaemonEnabled, !reflect.DeepEqual(prev.DaemonEnabled, next.DaemonEnabled))
	add(KeyDaemonPort, !reflect.DeepEqual(prev.DaemonPort, next.DaemonPort))
	add(KeyDaemonAddress, prev.Address != next.Address)
	add(KeyDaemonRateLimit, prev.RateLimit != next.RateLimit)
	add(KeyDaemonRateBurst, prev.RateBurst != next.RateBurst)
	add(KeyDaemonLazyDecode, prev.LazyDecode != next.LazyDecode)
	add(KeyDaemonCachedURLs, !reflect.DeepEqual(prev.CachedURLs, next.CachedURLs))
	sort.Strings(changed)
	return changed
}

// Bool returns a pointer to b, for building ICPConfig literals.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for building ICPConfig literals.
func Int(i int) *int { return &i }
