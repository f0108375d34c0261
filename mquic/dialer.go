package mquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN is the TLS application protocol negotiated for bootstrap connections.
const ALPN = "massa-bootstrap/1"

// DefaultConfig returns the QUIC configuration used for bootstrap connections.
// The consensus state can be large, so the idle timeout is generous;
// the per-message timeouts in the bootstrap protocol bound each step.
func DefaultConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout: 10 * time.Second,
		MaxIdleTimeout:       60 * time.Second,
		KeepAlivePeriod:      15 * time.Second,
	}
}

// Dialer opens QUIC connections to bootstrap servers.
type Dialer struct {
	// TLS settings for outgoing connections.
	// The ALPN is added to a clone if missing.
	BaseTLSConf *tls.Config

	QUICTransport *quic.Transport
	QUICConfig    *quic.Config
}

// Dial opens a QUIC connection to addr.
func (d Dialer) Dial(ctx context.Context, addr net.Addr) (Conn, error) {
	qc, err := d.QUICTransport.Dial(ctx, addr, withALPN(d.BaseTLSConf), d.QUICConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bootstrap server %s: %w", addr, err)
	}
	return WrapConn(qc), nil
}

// Listen starts accepting bootstrap connections on qt.
func Listen(tlsConf *tls.Config, qConf *quic.Config, qt *quic.Transport) (*quic.Listener, error) {
	ql, err := qt.Listen(withALPN(tlsConf), qConf)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for bootstrap connections: %w", err)
	}
	return ql, nil
}

func withALPN(base *tls.Config) *tls.Config {
	conf := base.Clone()
	if !slices.Contains(conf.NextProtos, ALPN) {
		conf.NextProtos = append(conf.NextProtos, ALPN)
	}
	return conf
}
