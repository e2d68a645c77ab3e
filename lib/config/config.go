package config

import (
	"os"
	"path/filepath"

	"github.com/go-i2p/go-icp/lib/util"
	"github.com/go-i2p/logger"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GOICP_BASE_DIR = ".go-icp"

// StandardDirPermissions for non-sensitive directories
const StandardDirPermissions = 0o755

// InitConfig wires viper to the configuration file, applies defaults and
// creates the file when none exists yet.
func InitConfig() {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildICPDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults(viper.GetViper())
	handleConfigFile()
}

// setDefaults registers defaults for keys whose absence carries no meaning.
// The enabled and port keys of both layers are left alone: viper.IsSet
// reports defaults as set, and an absent port must stay absent.
func setDefaults(v *viper.Viper) {
	d := Defaults().ICP
	v.SetDefault(KeyDaemonAddress, d.Address)
	v.SetDefault(KeyDaemonRateLimit, d.RateLimit)
	v.SetDefault(KeyDaemonRateBurst, d.RateBurst)
	v.SetDefault(KeyDaemonLazyDecode, d.LazyDecode)
	v.SetDefault(KeyDaemonCachedURLs, []string{})
}

func createDefaultConfig(defaultConfigDir string) {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	if err := os.MkdirAll(defaultConfigDir, StandardDirPermissions); err != nil {
		log.Fatalf("Could not create config directory: %s", err)
	}

	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		log.Fatalf("Could not write default config file: %s", err)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			createDefaultConfig(BuildICPDirPath())
		} else if CfgFile != "" && os.IsNotExist(err) {
			log.Fatalf("Config file %s is not found: %s", CfgFile, err)
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	} else {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// BuildICPDirPath returns the directory holding the default config file.
func BuildICPDirPath() string {
	return filepath.Join(util.UserHome(), GOICP_BASE_DIR)
}
