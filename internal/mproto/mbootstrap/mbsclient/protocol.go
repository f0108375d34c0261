package mbsclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lareeq/massa/internal/mproto"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mframe"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mtime"
)

// Protocol runs one bootstrap as the joining node.
type Protocol struct {
	Log *slog.Logger

	Framer mframe.Framer

	Cfg Config
}

type Config struct {
	SerializationContext *mcodec.SerializationContext

	// Key every signed message must verify against.
	BootstrapKey mcrypto.PublicKey

	Verifier mcrypto.Verifier

	// Source of the initiation's random bytes.
	Rand io.Reader

	// Local clock, used for clock compensation and the skew check.
	Clock mtime.Clock

	// If positive, a verified server time further than this
	// from the local clock ends the bootstrap.
	MaxClockSkew time.Duration
}

// Result is the verified outcome of a bootstrap.
type Result struct {
	ServerTime mtime.UTime

	// Estimated offset of the server clock from the local clock.
	// Positive when the server is ahead.
	ClockCompensation time.Duration

	Peers mpeer.BootstrapPeers

	Graph mgraph.BootstrapableGraph
}

// state is carried between handlers.
type state struct {
	Chain mproto.Chain

	// Local time just before sending the initiation.
	SentAt mtime.UTime

	Result Result
}

func (p *Protocol) Run(ctx context.Context) (Result, error) {
	var h clientHandler = sendInitiationHandler{
		OuterLog: p.Log,
		Cfg:      &p.Cfg,
	}

	var st state

	for {
		next, err := h.Handle(ctx, p.Framer, &st)
		if err != nil {
			return Result{}, fmt.Errorf(
				"failure handling bootstrap client protocol; step = %s : %w",
				h.Name(), err,
			)
		}

		if next == nil {
			if st.Chain.Phase() != mproto.Complete {
				panic(fmt.Errorf(
					"BUG: bootstrap client finished in phase %s", st.Chain.Phase(),
				))
			}
			return st.Result, nil
		}

		h = next
	}
}

type clientHandler interface {
	Handle(context.Context, mframe.Framer, *state) (clientHandler, error)
	Name() string
}
