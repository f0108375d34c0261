package mbsserver_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/lareeq/massa/internal/mproto"
	"github.com/lareeq/massa/internal/mproto/mbootstrap/mbsserver"
	"github.com/lareeq/massa/internal/mtest"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
	"github.com/lareeq/massa/mcrypto/mcryptotest"
	"github.com/lareeq/massa/mframe"
	"github.com/lareeq/massa/mgraph"
	"github.com/lareeq/massa/mgraph/mgraphtest"
	"github.com/lareeq/massa/mpeer"
	"github.com/lareeq/massa/mquic/mquictest"
	"github.com/lareeq/massa/mtime"
	"github.com/stretchr/testify/require"
)

type staticPeers struct {
	Peers mpeer.BootstrapPeers
	Err   error
}

func (s staticPeers) BootstrapPeers(context.Context) (mpeer.BootstrapPeers, error) {
	return s.Peers, s.Err
}

type staticGraph struct {
	Graph mgraph.BootstrapableGraph
	Err   error
}

func (s staticGraph) BootstrapGraph(context.Context) (mgraph.BootstrapableGraph, error) {
	return s.Graph, s.Err
}

// fixture is a server protocol on one end of a pipe,
// with the test acting as the joining node on the other end.
type fixture struct {
	SC     *mcodec.SerializationContext
	Signer mcrypto.Ed25519Signer

	Protocol *mbsserver.Protocol

	Client mframe.Framer
}

const serverNow mtime.UTime = 1_700_000_000_000

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sc := mcodec.DefaultSerializationContext()
	signer := mcryptotest.NewSigner(t, "bootstrap server")

	a, b := mquictest.NewStreamPair()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	fcfg := mframe.Config{
		MaxFrameSize: sc.MaxBootstrapMessageSize,
		ReadTimeout:  mtest.ScheduleTimeout,
		WriteTimeout: mtest.ScheduleTimeout,
		Compress:     true,
	}

	return &fixture{
		SC:     &sc,
		Signer: signer,

		Protocol: &mbsserver.Protocol{
			Log:    mtest.NewLogger(t),
			Framer: mframe.NewStreamFramer(a, fcfg),
			Cfg: mbsserver.Config{
				SerializationContext: &sc,
				Signer:               signer,
				Clock: mtime.FuncClock(func() time.Time {
					return serverNow.Time()
				}),
				Peers: staticPeers{Peers: mpeer.BootstrapPeers{Addrs: []netip.Addr{
					netip.MustParseAddr("203.0.113.1"),
				}}},
				Graph: staticGraph{Graph: mgraphtest.TwoThreadGraph()},
			},
		},

		Client: mframe.NewStreamFramer(b, fcfg),
	}
}

type runResult struct {
	Res mbsserver.Result
	Err error
}

func (f *fixture) Start(ctx context.Context) <-chan runResult {
	ch := make(chan runResult, 1)
	go func() {
		res, err := f.Protocol.Run(ctx)
		ch <- runResult{Res: res, Err: err}
	}()
	return ch
}

func (f *fixture) Receive(t *testing.T, ctx context.Context) mproto.Message {
	t.Helper()

	m, err := mproto.ReadMessage(ctx, f.Client, f.SC)
	require.NoError(t, err)
	return m
}

func TestProtocol_success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	resCh := f.Start(ctx)

	var init mproto.InitiationMessage
	for i := range init.RandomBytes {
		init.RandomBytes[i] = 0x01
	}
	require.NoError(t, mproto.WriteMessage(ctx, f.Client, init, f.SC))

	v := &mcryptotest.RecordingVerifier{V: mcrypto.Ed25519Verifier{}}
	c, err := mproto.Chain{}.Advance(init, f.Signer.PublicKey(), v, f.SC)
	require.NoError(t, err)

	tm := f.Receive(t, ctx)
	c, err = c.Advance(tm, f.Signer.PublicKey(), v, f.SC)
	require.NoError(t, err)
	require.Equal(t, serverNow, tm.(mproto.TimeMessage).ServerTime)

	pm := f.Receive(t, ctx)
	c, err = c.Advance(pm, f.Signer.PublicKey(), v, f.SC)
	require.NoError(t, err)

	gm := f.Receive(t, ctx)
	c, err = c.Advance(gm, f.Signer.PublicKey(), v, f.SC)
	require.NoError(t, err)
	require.Equal(t, mproto.Complete, c.Phase())
	require.Equal(t, mgraphtest.TwoThreadGraph(), gm.(mproto.ConsensusStateMessage).Graph)

	// The time signature covers the client's random bytes.
	wantTime, err := mproto.TimeSignContent(init.RandomBytes, serverNow, f.SC)
	require.NoError(t, err)
	require.Equal(t, wantTime, v.Transcripts()[0])

	rr := mtest.ReceiveSoon(t, resCh)
	require.NoError(t, rr.Err)
	require.Equal(t, mbsserver.Result{
		ServerTime:    serverNow,
		NPeers:        1,
		NActiveBlocks: 0,
	}, rr.Res)
}

func TestProtocol_unexpectedFirstMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	resCh := f.Start(ctx)

	require.NoError(t, mproto.WriteMessage(ctx, f.Client, mproto.TimeMessage{
		ServerTime: 1,
		Signature:  mcryptotest.FixedSignature("client cannot send time"),
	}, f.SC))

	rr := mtest.ReceiveSoon(t, resCh)
	require.ErrorIs(t, rr.Err, mproto.ErrUnexpectedVariant)
	require.ErrorContains(t, rr.Err, "step = Await Initiation")
}

func TestProtocol_truncatedInitiation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	resCh := f.Start(ctx)

	require.NoError(t, f.Client.WriteFrame(ctx, []byte{0x00, 0x01, 0x02}))

	rr := mtest.ReceiveSoon(t, resCh)
	require.ErrorIs(t, rr.Err, mcodec.ErrTruncatedBuffer)
}

func TestProtocol_sourceErrors(t *testing.T) {
	t.Parallel()

	errSource := errors.New("consensus unavailable")

	for _, tc := range []struct {
		name     string
		modify   func(*mbsserver.Config)
		nReplies int
		step     string
	}{
		{
			name:     "peers",
			modify:   func(c *mbsserver.Config) { c.Peers = staticPeers{Err: errSource} },
			nReplies: 1,
			step:     "Send Peers",
		},
		{
			name:     "graph",
			modify:   func(c *mbsserver.Config) { c.Graph = staticGraph{Err: errSource} },
			nReplies: 2,
			step:     "Send Consensus State",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t)
			tc.modify(&f.Protocol.Cfg)
			resCh := f.Start(ctx)

			require.NoError(t, mproto.WriteMessage(ctx, f.Client, mproto.InitiationMessage{}, f.SC))
			for range tc.nReplies {
				_ = f.Receive(t, ctx)
			}

			rr := mtest.ReceiveSoon(t, resCh)
			require.ErrorIs(t, rr.Err, errSource)
			require.ErrorContains(t, rr.Err, "step = "+tc.step)
		})
	}
}

type failingSigner struct {
	mcrypto.Signer
}

var errHSM = errors.New("hsm offline")

func (failingSigner) Sign(context.Context, []byte) (mcrypto.Signature, error) {
	return mcrypto.Signature{}, errHSM
}

func TestProtocol_signerFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.Protocol.Cfg.Signer = failingSigner{Signer: f.Signer}
	resCh := f.Start(ctx)

	require.NoError(t, mproto.WriteMessage(ctx, f.Client, mproto.InitiationMessage{}, f.SC))

	rr := mtest.ReceiveSoon(t, resCh)
	require.ErrorIs(t, rr.Err, errHSM)
	require.ErrorContains(t, rr.Err, "step = Send Time")
}

func TestProtocol_canceledBeforeInitiation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)
	resCh := f.Start(ctx)

	cancel()

	rr := mtest.ReceiveSoon(t, resCh)
	require.ErrorIs(t, rr.Err, context.Canceled)
}
