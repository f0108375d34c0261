package massa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lareeq/massa/internal/mproto/mbootstrap/mbsserver"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mframe"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mquic"
	"github.com/lareeq/massa/mtime"
)

// Server answers bootstrap requests from joining nodes.
// One Server may serve any number of connections concurrently.
type Server struct {
	log *slog.Logger
	cfg ServerConfig
}

// ServerConfig is the configuration for a [Server].
type ServerConfig struct {
	// Resource limits for encoding and decoding.
	SerializationContext mcodec.SerializationContext

	// Signs every reply.
	// Joining nodes must be configured with its public key.
	Signer mcrypto.Signer

	// If nil, [mtime.SystemClock] is used.
	Clock mtime.Clock

	Peers PeerSource
	Graph GraphSource

	// Time allowed for the joining node to open the bootstrap stream.
	// If zero, a 10 second timeout is used.
	AcceptStreamTimeout time.Duration

	// Time allowed to receive the initiation and to send each reply.
	// Zero means no timeout.
	ReadTimeout, WriteTimeout time.Duration

	// Whether to snappy-compress replies when that makes them smaller.
	Compress bool
}

const defaultAcceptStreamTimeout = 10 * time.Second

// PeerSource supplies the peer list sent to joining nodes.
type PeerSource interface {
	BootstrapPeers(context.Context) (mpeer.BootstrapPeers, error)
}

// GraphSource supplies the consensus graph snapshot sent to joining nodes.
// It is called once per bootstrap, after the peer list has been sent.
type GraphSource interface {
	BootstrapGraph(context.Context) (mgraph.BootstrapableGraph, error)
}

// StaticPeers is a [PeerSource] that always returns the same peers.
type StaticPeers mpeer.BootstrapPeers

func (p StaticPeers) BootstrapPeers(context.Context) (mpeer.BootstrapPeers, error) {
	return mpeer.BootstrapPeers(p), nil
}

// StaticGraph is a [GraphSource] that always returns the same graph.
type StaticGraph mgraph.BootstrapableGraph

func (g StaticGraph) BootstrapGraph(context.Context) (mgraph.BootstrapableGraph, error) {
	return mgraph.BootstrapableGraph(g), nil
}

// validate panics if there are any illegal settings in the configuration.
func (c ServerConfig) validate() {
	var panicErrs error

	if err := c.SerializationContext.Validate(); err != nil {
		panicErrs = errors.Join(panicErrs, fmt.Errorf("ServerConfig.SerializationContext is invalid: %w", err))
	}

	if c.Signer == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ServerConfig.Signer may not be nil"),
		)
	}

	if c.Peers == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ServerConfig.Peers may not be nil"),
		)
	}

	if c.Graph == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ServerConfig.Graph may not be nil"),
		)
	}

	if c.AcceptStreamTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("ServerConfig timeouts must not be negative"),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// NewServer returns a new Server.
// It panics if cfg has illegal settings.
func NewServer(log *slog.Logger, cfg ServerConfig) *Server {
	cfg.validate()

	if cfg.Clock == nil {
		cfg.Clock = mtime.SystemClock{}
	}
	if cfg.AcceptStreamTimeout == 0 {
		cfg.AcceptStreamTimeout = defaultAcceptStreamTimeout
	}

	return &Server{log: log, cfg: cfg}
}

// Serve accepts the bootstrap stream on conn and runs the bootstrap protocol.
//
// On success the connection is left open for the joining node to close,
// so that the last reply is not cut off.
// On failure, the stream is canceled and conn is closed with [mquic.BootstrapFailed].
func (s *Server) Serve(ctx context.Context, conn mquic.Conn) error {
	log := s.log.With("remote_addr", conn.RemoteAddr().String())

	// There is no plain timeout for accepting a stream,
	// so we have to use a context timeout for this.
	acceptCtx, cancel := context.WithTimeout(ctx, s.cfg.AcceptStreamTimeout)
	defer cancel()

	st, err := conn.AcceptStream(acceptCtx)
	if err != nil {
		_ = conn.CloseWithError(mquic.BootstrapFailed, "no bootstrap stream")
		return fmt.Errorf("failed to accept bootstrap stream: %w", err)
	}
	cancel() // Release cancellation resource now since we are done with it.

	sc := s.cfg.SerializationContext
	p := mbsserver.Protocol{
		Log: log,
		Framer: mframe.NewStreamFramer(st, mframe.Config{
			MaxFrameSize: sc.MaxBootstrapMessageSize,
			ReadTimeout:  s.cfg.ReadTimeout,
			WriteTimeout: s.cfg.WriteTimeout,
			Compress:     s.cfg.Compress,
		}),
		Cfg: mbsserver.Config{
			SerializationContext: &sc,
			Signer:               s.cfg.Signer,
			Clock:                s.cfg.Clock,
			Peers:                s.cfg.Peers,
			Graph:                s.cfg.Graph,
		},
	}

	res, err := p.Run(ctx)
	if err != nil {
		st.CancelRead(mquic.StreamAborted)
		st.CancelWrite(mquic.StreamAborted)
		_ = conn.CloseWithError(mquic.BootstrapFailed, "bootstrap failed")

		log.Info("Bootstrap request failed", "err", err)
		return err
	}

	_ = st.Close()

	log.Info(
		"Served bootstrap",
		"server_time", res.ServerTime,
		"n_peers", res.NPeers,
		"n_active_blocks", res.NActiveBlocks,
	)
	return nil
}
