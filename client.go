package massa

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lareeq/massa/internal/mproto/mbootstrap/mbsclient"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mframe"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mquic"
	"github.com/lareeq/massa/mtime"
)

// Client bootstraps a joining node from a trusted bootstrap server.
// A Client holds only configuration,
// so one Client may run any number of bootstraps concurrently.
type Client struct {
	log *slog.Logger
	cfg ClientConfig
}

// ClientConfig is the configuration for a [Client].
type ClientConfig struct {
	// Resource limits for decoding.
	// Must match the server's limits closely enough
	// that the server's messages are accepted.
	SerializationContext mcodec.SerializationContext

	// The bootstrap server's public key.
	// Every signed message must verify against it.
	BootstrapKey mcrypto.PublicKey

	// If nil, [mcrypto.Ed25519Verifier] is used.
	Verifier mcrypto.Verifier

	// If nil, [mtime.SystemClock] is used.
	Clock mtime.Clock

	// Source of the initiation's random bytes.
	// If nil, [crypto/rand.Reader] is used.
	Rand io.Reader

	// If positive, bootstrapping fails when the verified server time
	// is further than this from the local clock.
	MaxClockSkew time.Duration

	// Time allowed to open the stream, to send the initiation,
	// and to receive each of the server's messages.
	// Zero means no timeout.
	OpenStreamTimeout, ReadTimeout, WriteTimeout time.Duration

	// Whether to snappy-compress the initiation.
	// It is small enough that compression rarely helps.
	Compress bool
}

// validate panics if there are any illegal settings in the configuration.
func (c ClientConfig) validate() {
	// If there are multiple reasons we could panic,
	// collect them all in one go
	// so we can give a maximally helpful error.
	var panicErrs error

	if err := c.SerializationContext.Validate(); err != nil {
		panicErrs = errors.Join(panicErrs, fmt.Errorf("ClientConfig.SerializationContext is invalid: %w", err))
	}

	if c.BootstrapKey == (mcrypto.PublicKey{}) {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ClientConfig.BootstrapKey must be set"),
		)
	}

	if c.MaxClockSkew < 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ClientConfig.MaxClockSkew must not be negative; use zero to disable the check"),
		)
	}

	if c.OpenStreamTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ClientConfig timeouts must not be negative; use zero for no timeout"),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// NewClient returns a new Client.
// It panics if cfg has illegal settings.
func NewClient(log *slog.Logger, cfg ClientConfig) *Client {
	cfg.validate()

	if cfg.Verifier == nil {
		cfg.Verifier = mcrypto.Ed25519Verifier{}
	}
	if cfg.Clock == nil {
		cfg.Clock = mtime.SystemClock{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}

	return &Client{log: log, cfg: cfg}
}

// BootstrapResult is the verified state received from a bootstrap server.
type BootstrapResult struct {
	// The server's clock when it answered the initiation.
	ServerTime mtime.UTime

	// Estimated offset of the server clock from the local clock,
	// from the midpoint of the initiation round trip.
	// Positive when the server is ahead.
	ClockCompensation time.Duration

	Peers mpeer.BootstrapPeers

	Graph mgraph.BootstrapableGraph
}

// Bootstrap runs the bootstrap protocol on a new stream on conn.
//
// On success, conn is closed with [mquic.BootstrapDone].
// On failure, the stream is canceled and conn is closed with [mquic.BootstrapFailed].
func (c *Client) Bootstrap(ctx context.Context, conn mquic.Conn) (BootstrapResult, error) {
	log := c.log.With("remote_addr", conn.RemoteAddr().String())

	openCtx := ctx
	if c.cfg.OpenStreamTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, c.cfg.OpenStreamTimeout)
		defer cancel()
	}
	s, err := conn.OpenStreamSync(openCtx)
	if err != nil {
		_ = conn.CloseWithError(mquic.BootstrapFailed, "failed to open bootstrap stream")
		return BootstrapResult{}, fmt.Errorf("failed to open bootstrap stream: %w", err)
	}

	sc := c.cfg.SerializationContext
	p := mbsclient.Protocol{
		Log: log,
		Framer: mframe.NewStreamFramer(s, mframe.Config{
			MaxFrameSize: sc.MaxBootstrapMessageSize,
			ReadTimeout:  c.cfg.ReadTimeout,
			WriteTimeout: c.cfg.WriteTimeout,
			Compress:     c.cfg.Compress,
		}),
		Cfg: mbsclient.Config{
			SerializationContext: &sc,
			BootstrapKey:         c.cfg.BootstrapKey,
			Verifier:             c.cfg.Verifier,
			Rand:                 c.cfg.Rand,
			Clock:                c.cfg.Clock,
			MaxClockSkew:         c.cfg.MaxClockSkew,
		},
	}

	res, err := p.Run(ctx)
	if err != nil {
		s.CancelRead(mquic.StreamAborted)
		s.CancelWrite(mquic.StreamAborted)
		_ = conn.CloseWithError(mquic.BootstrapFailed, "bootstrap failed")

		log.Info("Bootstrap failed", "err", err)
		return BootstrapResult{}, err
	}

	_ = s.Close()
	_ = conn.CloseWithError(mquic.BootstrapDone, "")

	log.Info(
		"Bootstrap complete",
		"server_time", res.ServerTime,
		"clock_compensation", res.ClockCompensation,
		"n_peers", len(res.Peers.Addrs),
		"n_active_blocks", len(res.Graph.ActiveBlocks),
	)

	return BootstrapResult{
		ServerTime:        res.ServerTime,
		ClockCompensation: res.ClockCompensation,
		Peers:             res.Peers,
		Graph:             res.Graph,
	}, nil
}
