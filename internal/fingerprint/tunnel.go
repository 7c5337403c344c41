package fingerprint

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// dialVia opens a raw connection to addr, directly when proxyURL is nil and
// otherwise through an HTTP CONNECT or SOCKS5 proxy.
func dialVia(ctx context.Context, d *net.Dialer, proxyURL *url.URL, network, addr string) (net.Conn, error) {
	if proxyURL == nil {
		return d.DialContext(ctx, network, addr)
	}

	switch proxyURL.Scheme {
	case "http", "https":
		return connectTunnel(ctx, d, proxyURL, addr)
	case "socks5", "socks5h":
		pd, err := xproxy.FromURL(proxyURL, d)
		if err != nil {
			return nil, fmt.Errorf("fingerprint: socks proxy %s: %w", proxyURL.Redacted(), err)
		}
		cd, ok := pd.(xproxy.ContextDialer)
		if !ok {
			return pd.Dial(network, addr)
		}
		return cd.DialContext(ctx, network, addr)
	default:
		return nil, fmt.Errorf("fingerprint: unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

// connectTunnel asks an HTTP proxy to CONNECT to addr and returns the tunnel
// once the proxy answers 200.
func connectTunnel(ctx context.Context, d *net.Dialer, proxyURL *url.URL, addr string) (net.Conn, error) {
	conn, err := d.DialContext(ctx, "tcp", proxyAddr(proxyURL))
	if err != nil {
		return nil, fmt.Errorf("fingerprint: dial proxy %s: %w", proxyURL.Redacted(), err)
	}
	if proxyURL.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: proxyURL.Hostname()})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: proxy tls: %w", err)
		}
		conn = tlsConn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if u := proxyURL.User; u != nil {
		pass, _ := u.Password()
		req.Header.Set("Proxy-Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(u.Username()+":"+pass)))
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("fingerprint: write CONNECT: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("fingerprint: read CONNECT response: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, fmt.Errorf("fingerprint: proxy CONNECT to %s: %s", addr, resp.Status)
	}
	// the server speaks only after our ClientHello
	if br.Buffered() > 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("fingerprint: proxy sent data before the tls handshake")
	}
	return conn, nil
}

func proxyAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
