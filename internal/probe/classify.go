package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/sanverite/proxy-probe/internal/core"
)

// classifyTransportError maps a client-side fault onto a FailureKind.
// Order matters: a DNS lookup that times out is a timeout, and a refused
// dial to the proxy is reported as refused even though net/http wraps it in
// a "proxyconnect" OpError.
func classifyTransportError(err error) core.Failure {
	f := core.Failure{Kind: core.FailureOther, Detail: err.Error()}

	var (
		netErr   net.Error
		dnsErr   *net.DNSError
		opErr    *net.OpError
		verifyEr *tls.CertificateVerificationError
		recErr   tls.RecordHeaderError
		alertErr tls.AlertError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		certErr  x509.CertificateInvalidError
		connErr  *ProxyConnectError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		f.Kind = core.FailureTimeout
	case errors.As(err, &dnsErr):
		f.Kind = core.FailureDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		f.Kind = core.FailureConnRefused
	case errors.As(err, &verifyEr),
		errors.As(err, &recErr),
		errors.As(err, &alertErr),
		errors.As(err, &authErr),
		errors.As(err, &hostErr),
		errors.As(err, &certErr):
		f.Kind = core.FailureTLS
	case errors.As(err, &connErr):
		f.Kind = core.FailureProxyRejected
		f.Detail = "proxy refused tunnel: " + connErr.Status
	case socksRejection(err) != "":
		f.Kind = core.FailureProxyRejected
		f.Detail = "proxy refused tunnel: " + socksRejection(err)
	case errors.As(err, &opErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		f.Kind = core.FailureConnection
	}
	return f
}

// socksRejection returns the SOCKS dialer's refusal message, or "" when
// err is something else. net/http does not type these errors; they all
// start with "socks connect".
func socksRejection(err error) string {
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	if msg := inner.Error(); strings.HasPrefix(msg, "socks connect") {
		return msg
	}
	return ""
}
