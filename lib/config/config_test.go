package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// TestSetDefaultsLeavesLayerKeysUnset guards the absent-key semantics:
// a default on an enabled or port key would make viper report it as set.
func TestSetDefaultsLeavesLayerKeysUnset(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	for _, key := range []string{KeyPlatformEnabled, KeyPlatformPort, KeyDaemonEnabled, KeyDaemonPort} {
		assert.False(t, v.IsSet(key), key)
	}
	assert.True(t, v.IsSet(KeyDaemonAddress))
	assert.True(t, v.IsSet(KeyDaemonRateLimit))
}

func TestBuildICPDirPath(t *testing.T) {
	dir := BuildICPDirPath()
	assert.True(t, strings.HasSuffix(dir, GOICP_BASE_DIR))
	assert.Equal(t, GOICP_BASE_DIR, filepath.Base(dir))
}
