package validate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"
)

// Resolver performs DNS lookups. *net.Resolver implements it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// NewResolver returns a resolver that sends every query to server.
func NewResolver(server string, timeout time.Duration) *net.Resolver {
	addr := net.JoinHostPort(server, "53")
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, network, addr)
		},
	}
}

// CertificateFetcher returns the leaf certificate served for host.
type CertificateFetcher func(ctx context.Context, host string) (*x509.Certificate, error)

// TLSCertificate returns a CertificateFetcher that completes a verified TLS
// handshake with host on port 443.
func TLSCertificate(timeout time.Duration) CertificateFetcher {
	return func(ctx context.Context, host string) (*x509.Certificate, error) {
		d := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: timeout},
			Config: &tls.Config{
				ServerName: host,
				MinVersion: tls.VersionTLS12,
			},
		}
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
		if err != nil {
			return nil, fmt.Errorf("TLS handshake with %s: %w", host, err)
		}
		defer conn.Close()

		tlsConn, ok := conn.(*tls.Conn)
		if !ok {
			return nil, errors.New("not a TLS connection")
		}
		certs := tlsConn.ConnectionState().PeerCertificates
		if len(certs) == 0 {
			return nil, fmt.Errorf("%s presented no certificate", host)
		}
		return certs[0], nil
	}
}
