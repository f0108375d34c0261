package mbsclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lareeq/massa/internal/mproto"
	"github.com/lareeq/massa/mframe"
	"github.com/lareeq/massa/mtime"
)

// sendInitiationHandler starts the chain with fresh random bytes.
type sendInitiationHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h sendInitiationHandler) Handle(
	ctx context.Context, f mframe.Framer, st *state,
) (clientHandler, error) {
	var m mproto.InitiationMessage
	if _, err := io.ReadFull(h.Cfg.Rand, m.RandomBytes[:]); err != nil {
		return nil, fmt.Errorf("failed to generate initiation random bytes: %w", err)
	}

	// Advance before sending, so the chain is anchored
	// on exactly the bytes the server will sign.
	next, err := st.Chain.Advance(m, h.Cfg.BootstrapKey, h.Cfg.Verifier, h.Cfg.SerializationContext)
	if err != nil {
		return nil, err
	}

	st.SentAt = h.Cfg.Clock.Now()
	if err := mproto.WriteMessage(ctx, f, m, h.Cfg.SerializationContext); err != nil {
		return nil, err
	}
	st.Chain = next

	return awaitTimeHandler{
		OuterLog: h.OuterLog,
		Cfg:      h.Cfg,
	}, nil
}

func (h sendInitiationHandler) Name() string {
	return "Send Initiation"
}

// awaitTimeHandler verifies the server's signed clock reading.
type awaitTimeHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h awaitTimeHandler) Handle(
	ctx context.Context, f mframe.Framer, st *state,
) (clientHandler, error) {
	m, err := receive(ctx, f, st, h.Cfg)
	if err != nil {
		return nil, err
	}
	receivedAt := h.Cfg.Clock.Now()

	tm := m.(mproto.TimeMessage)
	st.Result.ServerTime = tm.ServerTime
	st.Result.ClockCompensation = mtime.Compensation(st.SentAt, receivedAt, tm.ServerTime)

	if mtime.Skewed(receivedAt, tm.ServerTime, h.Cfg.MaxClockSkew) {
		return nil, ClockSkewError{
			Local:  receivedAt,
			Remote: tm.ServerTime,
			Max:    h.Cfg.MaxClockSkew,
		}
	}

	h.OuterLog.Debug(
		"Received bootstrap server time",
		"server_time", tm.ServerTime,
		"compensation", st.Result.ClockCompensation,
	)

	return awaitPeersHandler{
		OuterLog: h.OuterLog,
		Cfg:      h.Cfg,
	}, nil
}

func (h awaitTimeHandler) Name() string {
	return "Await Time"
}

// awaitPeersHandler verifies the server's peer list.
type awaitPeersHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h awaitPeersHandler) Handle(
	ctx context.Context, f mframe.Framer, st *state,
) (clientHandler, error) {
	m, err := receive(ctx, f, st, h.Cfg)
	if err != nil {
		return nil, err
	}

	st.Result.Peers = m.(mproto.PeersMessage).Peers

	h.OuterLog.Debug(
		"Received bootstrap peers",
		"n_peers", len(st.Result.Peers.Addrs),
	)

	return awaitConsensusStateHandler{
		OuterLog: h.OuterLog,
		Cfg:      h.Cfg,
	}, nil
}

func (h awaitPeersHandler) Name() string {
	return "Await Peers"
}

// awaitConsensusStateHandler verifies the graph snapshot,
// which completes the chain.
type awaitConsensusStateHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h awaitConsensusStateHandler) Handle(
	ctx context.Context, f mframe.Framer, st *state,
) (clientHandler, error) {
	m, err := receive(ctx, f, st, h.Cfg)
	if err != nil {
		return nil, err
	}

	st.Result.Graph = m.(mproto.ConsensusStateMessage).Graph

	h.OuterLog.Debug(
		"Received bootstrap consensus state",
		"n_active_blocks", len(st.Result.Graph.ActiveBlocks),
		"n_cliques", len(st.Result.Graph.MaxCliques),
	)

	// Protocol complete.
	return nil, nil
}

func (h awaitConsensusStateHandler) Name() string {
	return "Await Consensus State"
}

// receive reads the next message and advances the chain with it.
// On success the message has the type the chain's previous phase expected.
func receive(
	ctx context.Context, f mframe.Framer, st *state, cfg *Config,
) (mproto.Message, error) {
	m, err := mproto.ReadMessage(ctx, f, cfg.SerializationContext)
	if err != nil {
		return nil, err
	}

	next, err := st.Chain.Advance(m, cfg.BootstrapKey, cfg.Verifier, cfg.SerializationContext)
	if err != nil {
		return nil, err
	}
	st.Chain = next
	return m, nil
}

// ErrClockSkew matches any [ClockSkewError].
var ErrClockSkew = errors.New("server clock skew too large")

// ClockSkewError is returned when the verified server time
// is further from the local clock than the configured maximum.
type ClockSkewError struct {
	Local, Remote mtime.UTime
	Max           time.Duration
}

func (e ClockSkewError) Error() string {
	return fmt.Sprintf(
		"server clock skew too large: local=%s remote=%s max=%s",
		e.Local, e.Remote, e.Max,
	)
}

func (e ClockSkewError) Is(target error) bool {
	return target == ErrClockSkew
}
