package mbsserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lareeq/massa/internal/mproto"
	"github.com/lareeq/massa/mframe"
)

type awaitInitiationHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h awaitInitiationHandler) Handle(
	ctx context.Context, f mframe.Framer, c *mproto.Chain, _ *Result,
) (serverHandler, error) {
	m, err := mproto.ReadMessage(ctx, f, h.Cfg.SerializationContext)
	if err != nil {
		return nil, err
	}

	// The initiation is unsigned, so the key and verifier are unused.
	next, err := c.Advance(m, h.Cfg.Signer.PublicKey(), nil, h.Cfg.SerializationContext)
	if err != nil {
		return nil, err
	}
	*c = next

	return sendTimeHandler{
		OuterLog: h.OuterLog,
		Cfg:      h.Cfg,
	}, nil
}

func (h awaitInitiationHandler) Name() string {
	return "Await Initiation"
}

type sendTimeHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h sendTimeHandler) Handle(
	ctx context.Context, f mframe.Framer, c *mproto.Chain, res *Result,
) (serverHandler, error) {
	now := h.Cfg.Clock.Now()

	m, next, err := c.SealTime(ctx, now, h.Cfg.Signer, h.Cfg.SerializationContext)
	if err != nil {
		return nil, err
	}
	if err := mproto.WriteMessage(ctx, f, m, h.Cfg.SerializationContext); err != nil {
		return nil, err
	}
	*c = next
	res.ServerTime = now

	return sendPeersHandler{
		OuterLog: h.OuterLog,
		Cfg:      h.Cfg,
	}, nil
}

func (h sendTimeHandler) Name() string {
	return "Send Time"
}

type sendPeersHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h sendPeersHandler) Handle(
	ctx context.Context, f mframe.Framer, c *mproto.Chain, res *Result,
) (serverHandler, error) {
	peers, err := h.Cfg.Peers.BootstrapPeers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bootstrap peers: %w", err)
	}

	m, next, err := c.SealPeers(ctx, peers, h.Cfg.Signer, h.Cfg.SerializationContext)
	if err != nil {
		return nil, err
	}
	if err := mproto.WriteMessage(ctx, f, m, h.Cfg.SerializationContext); err != nil {
		return nil, err
	}
	*c = next
	res.NPeers = len(peers.Addrs)

	return sendConsensusStateHandler{
		OuterLog: h.OuterLog,
		Cfg:      h.Cfg,
	}, nil
}

func (h sendPeersHandler) Name() string {
	return "Send Peers"
}

type sendConsensusStateHandler struct {
	OuterLog *slog.Logger
	Cfg      *Config
}

func (h sendConsensusStateHandler) Handle(
	ctx context.Context, f mframe.Framer, c *mproto.Chain, res *Result,
) (serverHandler, error) {
	g, err := h.Cfg.Graph.BootstrapGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bootstrap graph: %w", err)
	}

	m, next, err := c.SealConsensusState(ctx, g, h.Cfg.Signer, h.Cfg.SerializationContext)
	if err != nil {
		return nil, err
	}
	if err := mproto.WriteMessage(ctx, f, m, h.Cfg.SerializationContext); err != nil {
		return nil, err
	}
	*c = next
	res.NActiveBlocks = len(g.ActiveBlocks)

	h.OuterLog.Debug(
		"Sent bootstrap consensus state",
		"n_active_blocks", res.NActiveBlocks,
	)

	// Protocol complete.
	return nil, nil
}

func (h sendConsensusStateHandler) Name() string {
	return "Send Consensus State"
}
