package config

import (
	"net"

	"github.com/go-i2p/logger"
)

// ConfigDefaults contains all default configuration values for go-icp.
type ConfigDefaults struct {
	// ICP server defaults
	ICP ICPDefaults
}

// ICPDefaults contains default values for the ICP listener.
type ICPDefaults struct {
	// PlatformEnabled applies when platform.icp.enabled is absent.
	// Default: true
	PlatformEnabled bool

	// DaemonEnabled applies when daemon.icp.enabled is absent.
	// Default: false (ICP must be switched on explicitly)
	DaemonEnabled bool

	// Port is the conventional ICP port. It is never applied implicitly;
	// an absent port leaves ICP stopped.
	// Default: 3130 (IANA icp)
	Port int

	// Address is the IPv4 address advertised in outgoing messages.
	// Default: "127.0.0.1"
	Address string

	// RateLimit is the number of peer queries accepted per second.
	// Default: 100
	RateLimit float64

	// RateBurst is the number of queries accepted back to back.
	// Default: 200
	RateBurst int

	// LazyDecode defers field extraction of received datagrams.
	// Default: false
	LazyDecode bool
}

// Defaults returns a ConfigDefaults instance with all default values set.
func Defaults() ConfigDefaults {
	return ConfigDefaults{
		ICP: buildICPDefaults(),
	}
}

func buildICPDefaults() ICPDefaults {
	return ICPDefaults{
		PlatformEnabled: true,
		DaemonEnabled:   false,
		Port:            3130,
		Address:         "127.0.0.1",
		RateLimit:       100,
		RateBurst:       200,
		LazyDecode:      false,
	}
}

// Validate checks that cfg holds usable values. Absent ports are valid;
// present ones must fit in 1..65535.
func Validate(cfg *ICPConfig) error {
	log.WithFields(logger.Fields{
		"at":     "ValidateICPConfig",
		"reason": "verification_requested",
	}).Debug("validating ICP configuration")
	if cfg == nil {
		return newValidationError("ICP configuration is nil")
	}
	validators := []func() error{
		func() error { return validatePort(KeyPlatformPort, cfg.PlatformPort) },
		func() error { return validatePort(KeyDaemonPort, cfg.DaemonPort) },
		func() error { return validateAddress(cfg.Address) },
		func() error { return validateRate(cfg.RateLimit, cfg.RateBurst) },
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).Error("Configuration validation failed")
			return err
		}
	}
	log.WithFields(logger.Fields{
		"at":     "ValidateICPConfig",
		"reason": "all_validators_passed",
	}).Debug("ICP configuration validated successfully")
	return nil
}

// ValidateForRun checks only what a running listener uses: the port cfg
// resolves to, the advertised address and the limiter rates. A
// configuration that resolves to stopped always passes.
func ValidateForRun(cfg *ICPConfig) error {
	r := cfg.Resolve()
	if !r.ShouldRun() {
		return nil
	}
	key := KeyDaemonPort
	if cfg.DaemonPort == nil {
		key = KeyPlatformPort
	}
	port := r.Port
	validators := []func() error{
		func() error { return validatePort(key, &port) },
		func() error { return validateAddress(cfg.Address) },
		func() error { return validateRate(cfg.RateLimit, cfg.RateBurst) },
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).WithField("port", port).Error("ICP configuration cannot run")
			return err
		}
	}
	return nil
}

func validatePort(key string, port *int) error {
	if port == nil {
		return nil
	}
	if *port < 1 || *port > 65535 {
		log.WithFields(logger.Fields{
			"at":     "validatePort",
			"key":    key,
			"port":   *port,
			"reason": "port_out_of_range",
		}).Error("invalid ICP configuration")
		return newValidationError(key + " must be between 1 and 65535")
	}
	return nil
}

func validateAddress(address string) error {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		log.WithFields(logger.Fields{
			"at":      "validateAddress",
			"address": address,
			"reason":  "not_ipv4",
		}).Error("invalid ICP configuration")
		return newValidationError(KeyDaemonAddress + " must be an IPv4 address")
	}
	return nil
}

func validateRate(limit float64, burst int) error {
	if limit <= 0 {
		return newValidationError(KeyDaemonRateLimit + " must be positive")
	}
	if burst < 1 {
		return newValidationError(KeyDaemonRateBurst + " must be at least 1")
	}
	return nil
}

type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
