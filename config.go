package massa

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
)

// FileConfig is the on-disk configuration of a bootstrap client or server.
//
// An example file:
//
//	[serialization]
//	max_peer_list_length = 64
//
//	[bootstrap]
//	bootstrap_key = "<bs58check public key>"
//	read_timeout = "10s"
//	write_timeout = "10s"
//	max_clock_skew = "2s"
//	compress = true
type FileConfig struct {
	Serialization mcodec.SerializationContext `toml:"serialization"`

	Bootstrap BootstrapFileConfig `toml:"bootstrap"`
}

// BootstrapFileConfig is the [bootstrap] section of a [FileConfig].
type BootstrapFileConfig struct {
	// Text form of the bootstrap server's public key.
	// Only required on joining nodes.
	BootstrapKey string `toml:"bootstrap_key"`

	OpenStreamTimeout   time.Duration `toml:"open_stream_timeout"`
	AcceptStreamTimeout time.Duration `toml:"accept_stream_timeout"`
	ReadTimeout         time.Duration `toml:"read_timeout"`
	WriteTimeout        time.Duration `toml:"write_timeout"`

	MaxClockSkew time.Duration `toml:"max_clock_skew"`

	Compress bool `toml:"compress"`
}

// DefaultFileConfig returns the configuration used for keys absent from a file.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Serialization: mcodec.DefaultSerializationContext(),
		Bootstrap: BootstrapFileConfig{
			OpenStreamTimeout:   10 * time.Second,
			AcceptStreamTimeout: defaultAcceptStreamTimeout,
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        30 * time.Second,
			Compress:            true,
		},
	}
}

// LoadConfigFile reads a [FileConfig] from the TOML file at path.
// Keys absent from the file keep their [DefaultFileConfig] value;
// unknown keys are an error.
func LoadConfigFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config file (%s): %w", path, err)
	}

	return ParseConfig(string(data))
}

// ParseConfig is like [LoadConfigFile] but reads the TOML document from s.
func ParseConfig(s string) (FileConfig, error) {
	c := DefaultFileConfig()
	md, err := toml.Decode(s, &c)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if err := c.validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config: %w", err)
	}

	return c, nil
}

func (c FileConfig) validate() error {
	err := c.Serialization.Validate()

	b := c.Bootstrap
	if b.OpenStreamTimeout < 0 || b.AcceptStreamTimeout < 0 || b.ReadTimeout < 0 || b.WriteTimeout < 0 {
		err = errors.Join(err, errors.New("bootstrap timeouts must not be negative"))
	}
	if b.MaxClockSkew < 0 {
		err = errors.Join(err, errors.New("max_clock_skew must not be negative"))
	}
	if b.BootstrapKey != "" {
		if _, keyErr := mcrypto.ParsePublicKey(b.BootstrapKey); keyErr != nil {
			err = errors.Join(err, fmt.Errorf("bootstrap_key: %w", keyErr))
		}
	}

	return err
}

// ClientConfig returns the [ClientConfig] described by c.
// Fields that cannot come from a file, such as the clock, are left nil
// and take their defaults in [NewClient].
func (c FileConfig) ClientConfig() (ClientConfig, error) {
	if c.Bootstrap.BootstrapKey == "" {
		return ClientConfig{}, errors.New("bootstrap_key is required for a bootstrap client")
	}
	key, err := mcrypto.ParsePublicKey(c.Bootstrap.BootstrapKey)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("bootstrap_key: %w", err)
	}

	return ClientConfig{
		SerializationContext: c.Serialization,
		BootstrapKey:         key,
		MaxClockSkew:         c.Bootstrap.MaxClockSkew,
		OpenStreamTimeout:    c.Bootstrap.OpenStreamTimeout,
		ReadTimeout:          c.Bootstrap.ReadTimeout,
		WriteTimeout:         c.Bootstrap.WriteTimeout,
		Compress:             c.Bootstrap.Compress,
	}, nil
}

// ServerConfig returns the [ServerConfig] described by c,
// using the given signer and sources.
func (c FileConfig) ServerConfig(signer mcrypto.Signer, peers PeerSource, graph GraphSource) ServerConfig {
	return ServerConfig{
		SerializationContext: c.Serialization,
		Signer:               signer,
		Peers:                peers,
		Graph:                graph,
		AcceptStreamTimeout:  c.Bootstrap.AcceptStreamTimeout,
		ReadTimeout:          c.Bootstrap.ReadTimeout,
		WriteTimeout:         c.Bootstrap.WriteTimeout,
		Compress:             c.Bootstrap.Compress,
	}
}
