package massa_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lareeq/massa"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto/mcryptotest"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	key := mcryptotest.NewSigner(t, "bootstrap server").PublicKey()

	path := filepath.Join(t.TempDir(), "bootstrap.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[serialization]
max_peer_list_length = 64
max_bootstrap_message_size = 1000000

[bootstrap]
bootstrap_key = "`+key.String()+`"
read_timeout = "5s"
max_clock_skew = "1500ms"
compress = false
`), 0o600))

	c, err := massa.LoadConfigFile(path)
	require.NoError(t, err)

	want := massa.DefaultFileConfig()
	want.Serialization.MaxPeerListLength = 64
	want.Serialization.MaxBootstrapMessageSize = 1_000_000
	want.Bootstrap.BootstrapKey = key.String()
	want.Bootstrap.ReadTimeout = 5 * time.Second
	want.Bootstrap.MaxClockSkew = 1500 * time.Millisecond
	want.Bootstrap.Compress = false
	require.Equal(t, want, c)

	cc, err := c.ClientConfig()
	require.NoError(t, err)
	require.Equal(t, key, cc.BootstrapKey)
	require.Equal(t, uint32(64), cc.SerializationContext.MaxPeerListLength)
	require.Equal(t, 5*time.Second, cc.ReadTimeout)
	require.Equal(t, 1500*time.Millisecond, cc.MaxClockSkew)
}

func TestParseConfig_defaults(t *testing.T) {
	t.Parallel()

	c, err := massa.ParseConfig("")
	require.NoError(t, err)
	require.Equal(t, massa.DefaultFileConfig(), c)
	require.Equal(t, mcodec.DefaultSerializationContext(), c.Serialization)

	// A server needs no bootstrap key.
	signer := mcryptotest.NewSigner(t, "server")
	sc := c.ServerConfig(signer, massa.StaticPeers{}, massa.StaticGraph{})
	require.Equal(t, c.Bootstrap.AcceptStreamTimeout, sc.AcceptStreamTimeout)
	require.True(t, sc.Compress)

	// But a client does.
	_, err = c.ClientConfig()
	require.Error(t, err)
}

func TestParseConfig_rejects(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		in   string
		msg  string
	}{
		{
			name: "unknown key",
			in:   "[bootstrap]\nread_timout = \"1s\"\n",
			msg:  "bootstrap.read_timout",
		},
		{
			name: "zero limit",
			in:   "[serialization]\nparent_count = 0\n",
			msg:  "parent_count must be greater than zero",
		},
		{
			name: "negative timeout",
			in:   "[bootstrap]\nwrite_timeout = \"-1s\"\n",
			msg:  "timeouts must not be negative",
		},
		{
			name: "bad key",
			in:   "[bootstrap]\nbootstrap_key = \"not a key\"\n",
			msg:  "bootstrap_key",
		},
		{
			name: "malformed toml",
			in:   "[bootstrap\n",
			msg:  "failed to parse config",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := massa.ParseConfig(tc.in)
			require.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestLoadConfigFile_missing(t *testing.T) {
	t.Parallel()

	_, err := massa.LoadConfigFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
