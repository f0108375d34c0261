package mbsserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lareeq/massa/internal/mproto"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mframe"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mtime"
)

// Protocol runs one bootstrap as the bootstrap server.
type Protocol struct {
	Log *slog.Logger

	Framer mframe.Framer

	Cfg Config
}

type Config struct {
	SerializationContext *mcodec.SerializationContext

	Signer mcrypto.Signer

	Clock mtime.Clock

	Peers PeerSource
	Graph GraphSource
}

// PeerSource supplies the peer list sent to joining nodes.
type PeerSource interface {
	BootstrapPeers(context.Context) (mpeer.BootstrapPeers, error)
}

// GraphSource supplies the consensus graph snapshot sent to joining nodes.
// It is called once per bootstrap, after the peers have been sent.
type GraphSource interface {
	BootstrapGraph(context.Context) (mgraph.BootstrapableGraph, error)
}

// Result summarizes what was sent.
type Result struct {
	ServerTime mtime.UTime

	NPeers        int
	NActiveBlocks int
}

func (p *Protocol) Run(ctx context.Context) (Result, error) {
	var h serverHandler = awaitInitiationHandler{
		OuterLog: p.Log,
		Cfg:      &p.Cfg,
	}

	var chain mproto.Chain
	var res Result

	for {
		next, err := h.Handle(ctx, p.Framer, &chain, &res)
		if err != nil {
			return res, fmt.Errorf(
				"failure handling bootstrap server protocol; step = %s : %w",
				h.Name(), err,
			)
		}

		if next == nil {
			if chain.Phase() != mproto.Complete {
				panic(fmt.Errorf(
					"BUG: bootstrap server finished in phase %s", chain.Phase(),
				))
			}
			return res, nil
		}

		h = next
	}
}

type serverHandler interface {
	Handle(context.Context, mframe.Framer, *mproto.Chain, *Result) (serverHandler, error)
	Name() string
}
