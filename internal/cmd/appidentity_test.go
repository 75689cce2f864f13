package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/appid"
)

func TestConfigureViperUsesIdentityPrefix(t *testing.T) {
	identity, err := appid.Get(t.Context())
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(identity.EnvPrefix, "_"))

	t.Setenv("HANDLESCAN_PROBE_CONCURRENCY", "7")

	v := viper.New()
	require.NoError(t, configureViper(v, "", identity))

	require.Equal(t, 7, v.GetInt("probe.concurrency"))
	require.Equal(t, "localhost", v.GetString("server.host"))
}

func TestConfigureViperExplicitFile(t *testing.T) {
	identity, err := appid.Get(t.Context())
	require.NoError(t, err)

	path := writeFile(t, "config.yaml", "probe:\n  timeout: 3s\n")

	v := viper.New()
	require.NoError(t, configureViper(v, path, identity))
	require.NoError(t, v.ReadInConfig())
	require.Equal(t, path, v.ConfigFileUsed())
	require.Equal(t, "3s", v.GetString("probe.timeout"))
}
