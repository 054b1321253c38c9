// File: client/dial.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"

	"github.com/momentics/wsio/protocol"
)

// Dialer opens the transport-level connection used for one reconnect
// attempt. The default dials TCP directly; tests substitute an in-memory
// pipe dialer.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

func defaultDialer(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

// bufferedConnStream adapts a net.Conn plus the bufio.Reader the handshake
// already read the 101 response through, so any frame bytes the server
// pipelined right behind its response aren't lost when the handshake
// reader goes out of scope.
type bufferedConnStream struct {
	net.Conn
	br *bufio.Reader
}

func (s *bufferedConnStream) Read(p []byte) (int, error) { return s.br.Read(p) }

// dial opens a TCP connection to endpoint, performs the RFC6455 Upgrade
// handshake against requestPath/namespace, and returns the raw stream
// ready for frame traffic.
func dial(ctx context.Context, dialer Dialer, endpoint, namespace, requestPath string) (Stream, error) {
	dialURL, err := buildDialURL(endpoint, namespace, requestPath)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(dialURL)
	if err != nil {
		return nil, err
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "80")
	}

	conn, err := dialer(ctx, "tcp", host)
	if err != nil {
		return nil, err
	}

	secKey, err := newSecWebSocketKey()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	path := u.Path
	if u.RawQuery != "" {
		path = path + "?" + u.RawQuery
	}
	if err := protocol.WriteUpgradeRequest(conn, u.Host, path, secKey); err != nil {
		_ = conn.Close()
		return nil, err
	}

	br := bufio.NewReader(conn)
	if err := protocol.ReadUpgradeResponse(br); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("client: handshake failed: %w", err)
	}
	return &bufferedConnStream{Conn: conn, br: br}, nil
}

func newSecWebSocketKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}
