package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	utls "github.com/refraction-networking/utls"
)

// Profile selects the TLS ClientHello the outbound transport presents. A
// transport whose TLS fingerprint matches the rotated browser user-agent is
// much less likely to be singled out than the default Go handshake.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard library TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("unknown fingerprint profile %q", p)
	}
}

// Transport returns an http.RoundTripper whose TLS handshake mimics the given
// profile. ProfileGo yields a plain cloned http.Transport. proxyFunc, when
// non-nil, becomes the transport's Proxy so callers can rotate proxies per
// request (the fetcher stores the proxy URL in the request context).
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}

	if p == ProfileGo {
		return transport, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}

	// Dial the TCP connection with the transport's own dialer, then run the
	// uTLS handshake on top of it instead of crypto/tls.
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr // no port present
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, id)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake: %w", err)
		}
		return uConn, nil
	}

	return transport, nil
}
