// File: server/upgrade.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import (
	"bufio"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/momentics/wsio/internal/sockopt"
	"github.com/momentics/wsio/protocol"
)

// UpgradeHandler is the http.Handler implementing §4.7: it validates the
// upgrade preconditions, hijacks the TCP connection, writes the 101
// response, and hands the raw stream off to the matched namespace.
// Grounded on the teacher's protocol.Handshake flow, adapted from an
// io.Reader-oriented handshake to net/http's Hijacker.
type UpgradeHandler struct {
	rt *Runtime
}

// NewUpgradeHandler builds an http.Handler bound to rt's namespace table.
func NewUpgradeHandler(rt *Runtime) *UpgradeHandler {
	return &UpgradeHandler{rt: rt}
}

func (h *UpgradeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	nsPath, err := protocol.ValidateUpgrade(r, func(path string) bool {
		_, ok := h.rt.GetNamespace(path)
		return ok
	})
	if err != nil {
		if he, ok := err.(*protocol.HandshakeError); ok {
			http.Error(w, he.Reason, he.StatusCode)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ns, ok := h.rt.GetNamespace(nsPath)
	if !ok {
		http.Error(w, "namespace vanished", http.StatusNotFound)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, ErrUpgradeFutureMissing.Error(), http.StatusInternalServerError)
		return
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		http.Error(w, ErrUpgradeFutureMissing.Error(), http.StatusInternalServerError)
		return
	}

	if err := sockopt.SetNoDelay(conn); err != nil {
		ns.cfg.Logger.Debug("sockopt.SetNoDelay failed", zap.Error(err))
	}

	secKey := r.Header.Get(protocol.HeaderSecWebSocketKey)
	if err := protocol.WriteSwitchingProtocols(rw.Writer, secKey); err != nil {
		_ = conn.Close()
		return
	}
	if err := rw.Writer.Flush(); err != nil {
		_ = conn.Close()
		return
	}

	stream := &hijackedStream{conn: conn, reader: rw.Reader}
	ns.Accept(r.Context(), stream, r.Header.Clone(), r.URL)
}

// hijackedStream adapts a hijacked net.Conn plus its pre-filled bufio
// buffer (bytes read speculatively by net/http before Hijack) into a
// single Stream.
type hijackedStream struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (s *hijackedStream) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *hijackedStream) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *hijackedStream) Close() error                { return s.conn.Close() }
