package mquictest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/lareeq/massa/internal/mtest"
	"github.com/lareeq/massa/mquic"
	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

// Loopback is a QUIC listener and a dialer on 127.0.0.1,
// trusting a single self-signed certificate.
//
// The UDP sockets are closed as part of [testing.T.Cleanup].
type Loopback struct {
	Listener *quic.Listener
	Dialer   mquic.Dialer

	ListenAddr net.Addr
}

// NewLoopback starts a listener and prepares a dialer that trusts it.
func NewLoopback(t *testing.T) *Loopback {
	t.Helper()

	cert := selfSignedCert(t, "bootstrap.example.com")
	pool := x509.NewCertPool()
	pool.AddCert(cert.Leaf)

	serverUDP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	clientUDP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	serverQT := &quic.Transport{Conn: serverUDP}
	clientQT := &quic.Transport{Conn: clientUDP}
	t.Cleanup(func() {
		_ = serverQT.Close()
		_ = clientQT.Close()
		_ = serverUDP.Close()
		_ = clientUDP.Close()
	})

	ql, err := mquic.Listen(&tls.Config{
		Certificates: []tls.Certificate{cert},
	}, mquic.DefaultConfig(), serverQT)
	require.NoError(t, err)

	return &Loopback{
		Listener: ql,
		Dialer: mquic.Dialer{
			BaseTLSConf: &tls.Config{
				RootCAs:    pool,
				ServerName: "bootstrap.example.com",
			},
			QUICTransport: clientQT,
			QUICConfig:    mquic.DefaultConfig(),
		},
		ListenAddr: serverUDP.LocalAddr(),
	}
}

// Dial connects the dialer to the listener,
// returning the dialing side and the accepted side.
//
// If another goroutine is accepting on the listener,
// the two attempts race and the test will be inconsistent.
func (l *Loopback) Dial(t *testing.T) (client, server mquic.Conn) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), mtest.ScheduleTimeout)
	defer cancel()

	acceptedCh := make(chan *quic.Conn, 1)
	go func() {
		qc, err := l.Listener.Accept(ctx)
		if err != nil {
			t.Error(err)
			acceptedCh <- nil
			return
		}
		acceptedCh <- qc
	}()

	client, err := l.Dialer.Dial(ctx, l.ListenAddr)
	require.NoError(t, err)

	accepted := mtest.ReceiveSoon(t, acceptedCh)
	require.NotNil(t, accepted)

	return client, mquic.WrapConn(accepted)
}

func selfSignedCert(t *testing.T, dnsName string) tls.Certificate {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: dnsName},
		DNSNames:     []string{dnsName},

		NotBefore: now.Add(-time.Minute),
		NotAfter:  now.Add(time.Hour),

		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        leaf,
	}
}
