// Package config provides configuration management for the go-icp daemon.
//
// # Layers
//
// ICP settings come from two independent layers, either of which may leave
// a key unset:
//
//   - platform.icp.enabled (default true) and platform.icp.port describe what
//     the host platform allows.
//   - daemon.icp.enabled (default false) and daemon.icp.port describe what
//     the daemon itself wants.
//
// ICP runs only when both layers are enabled and a port resolves, the daemon
// port taking precedence over the platform port. Enabling ICP without any
// port is a valid but inert configuration.
//
// # Files
//
// Settings are read through viper from $HOME/.go-icp/config.yaml unless a
// file is named explicitly. A default file is written on first start.
package config
