package mcodec

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// SerializationContext is the set of resource limits
// that bound every nested decode.
//
// A SerializationContext is built once from static configuration
// and shared by pointer across every handshake of a node.
// Codecs only read it, so concurrent use without locking is safe
// as long as nothing writes to it after construction.
type SerializationContext struct {
	// Largest serialized block, in bytes.
	MaxBlockSize uint32 `toml:"max_block_size"`

	// Largest number of operations in one block.
	MaxBlockOperations uint32 `toml:"max_block_operations"`

	// Number of parents of every block, which is also the thread count.
	ParentCount uint8 `toml:"parent_count"`

	// Largest number of addresses in a bootstrap peer list.
	MaxPeerListLength uint32 `toml:"max_peer_list_length"`

	// Largest regular network message, in bytes.
	MaxMessageSize uint32 `toml:"max_message_size"`

	// Largest number of active blocks in a bootstrap graph;
	// also bounds the incompatibility graph and clique sizes.
	MaxBootstrapBlocks uint32 `toml:"max_bootstrap_blocks"`

	// Largest number of maximal cliques in a bootstrap graph.
	MaxBootstrapCliques uint32 `toml:"max_bootstrap_cliques"`

	// Largest number of dependencies of one exported active block.
	MaxBootstrapDeps uint32 `toml:"max_bootstrap_deps"`

	// Largest number of children, per thread, of one exported active block.
	MaxBootstrapChildren uint32 `toml:"max_bootstrap_children"`

	// Largest number of block IDs asked for in one message.
	MaxAskBlocksPerMessage uint32 `toml:"max_ask_blocks_per_message"`

	// Largest number of operations in one message.
	MaxOperationsPerMessage uint32 `toml:"max_operations_per_message"`

	// Largest encoded bootstrap message, in bytes.
	MaxBootstrapMessageSize uint32 `toml:"max_bootstrap_message_size"`
}

// DefaultSerializationContext returns the limits a node uses
// when its configuration does not override them.
func DefaultSerializationContext() SerializationContext {
	return SerializationContext{
		MaxBlockSize:            100 * 1024,
		MaxBlockOperations:      1024,
		ParentCount:             32,
		MaxPeerListLength:       128,
		MaxMessageSize:          3 * 1024 * 1024,
		MaxBootstrapBlocks:      100,
		MaxBootstrapCliques:     100,
		MaxBootstrapDeps:        100,
		MaxBootstrapChildren:    100,
		MaxAskBlocksPerMessage:  10,
		MaxOperationsPerMessage: 1024,
		MaxBootstrapMessageSize: 100_000_000,
	}
}

// Validate reports every zero limit at once.
func (c SerializationContext) Validate() error {
	var err error

	check := func(name string, v uint32) {
		if v == 0 {
			err = errors.Join(err, fmt.Errorf("%s must be greater than zero", name))
		}
	}

	check("max_block_size", c.MaxBlockSize)
	check("max_block_operations", c.MaxBlockOperations)
	check("parent_count", uint32(c.ParentCount))
	check("max_peer_list_length", c.MaxPeerListLength)
	check("max_message_size", c.MaxMessageSize)
	check("max_bootstrap_blocks", c.MaxBootstrapBlocks)
	check("max_bootstrap_cliques", c.MaxBootstrapCliques)
	check("max_bootstrap_deps", c.MaxBootstrapDeps)
	check("max_bootstrap_children", c.MaxBootstrapChildren)
	check("max_ask_blocks_per_message", c.MaxAskBlocksPerMessage)
	check("max_operations_per_message", c.MaxOperationsPerMessage)
	check("max_bootstrap_message_size", c.MaxBootstrapMessageSize)

	return err
}

// LoadSerializationContext reads limits from the TOML file at path.
// Keys absent from the file keep their [DefaultSerializationContext] value.
func LoadSerializationContext(path string) (SerializationContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SerializationContext{}, fmt.Errorf("failed to read serialization context (%s): %w", path, err)
	}

	return ParseSerializationContext(string(data))
}

// ParseSerializationContext is like [LoadSerializationContext]
// but reads the TOML document from s.
// Keys that do not name a limit are an error.
func ParseSerializationContext(s string) (SerializationContext, error) {
	c := DefaultSerializationContext()
	md, err := toml.Decode(s, &c)
	if err != nil {
		return SerializationContext{}, fmt.Errorf("failed to parse serialization context: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return SerializationContext{}, fmt.Errorf(
			"unknown serialization context keys: %s", strings.Join(keys, ", "),
		)
	}

	if err := c.Validate(); err != nil {
		return SerializationContext{}, fmt.Errorf("invalid serialization context: %w", err)
	}

	return c, nil
}
