package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/faultd/faultd/pkg/action"
	"github.com/faultd/faultd/pkg/httputil"
	"github.com/faultd/faultd/pkg/rewrite"
)

// portHandler serves one intercepted port. The port number is fixed at
// construction so rules with a port selector can discriminate.
type portHandler struct {
	server *Server
	port   int
}

func (h *portHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.server
	ctx := r.Context()
	start := time.Now()

	rc, req, err := s.pipeline.ApplyRequest(ctx, h.port, r)
	if err != nil {
		h.fail(w, r, "request", err)
		return
	}

	resp, err := s.forward(req)
	if err != nil {
		s.logError("upstream request failed", "port", h.port, "host", req.Host, "error", err)
		httputil.WriteBadGateway(w, "upstream_error", err.Error())
		return
	}

	mutated, err := s.pipeline.ApplyResponse(ctx, rc, resp)
	if err != nil {
		// ApplyResponse closes the body on its error paths; closing
		// again here covers any future error source that does not.
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		h.fail(w, r, "response", err)
		return
	}
	resp = mutated
	defer func() { _ = resp.Body.Close() }()

	writeResponse(w, resp)
	s.logInfo("exchange complete",
		"port", h.port,
		"method", rc.Method,
		"path", rc.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
}

// fail terminates an exchange whose rule application errored. Aborts
// reset the client connection; rewrite failures mean the request must
// not reach upstream; a cancelled context means the client is gone.
func (h *portHandler) fail(w http.ResponseWriter, r *http.Request, side string, err error) {
	s := h.server
	switch {
	case errors.Is(err, action.ErrAborted):
		s.logInfo("exchange aborted", "port", h.port, "side", side, "method", r.Method, "path", r.URL.Path)
		resetConnection(w)
	case errors.Is(err, rewrite.ErrInvalidURI):
		s.logError("rewrite produced invalid URI", "port", h.port, "path", r.URL.Path, "error", err)
		httputil.WriteInternalError(w, "rewrite_failed", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away mid-delay. Nothing useful to write.
	default:
		s.logError("rule application failed", "port", h.port, "side", side, "error", err)
		httputil.WriteInternalError(w, "internal_error", err.Error())
	}
}

// forward sends the (possibly mutated) request upstream. The request
// arrived transparently, so the URL carries only a path: the authority
// comes from the Host header.
func (s *Server) forward(r *http.Request) (*http.Response, error) {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	if out.URL.Scheme == "" {
		out.URL.Scheme = "http"
	}
	if out.URL.Host == "" {
		out.URL.Host = r.Host
	}
	removeHopByHopHeaders(out.Header)
	return s.transport.RoundTrip(out)
}

// resetConnection drops the client TCP connection without a response,
// so the client observes a reset instead of an HTTP error. Falls back
// to 502 when the writer cannot be hijacked.
func resetConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		httputil.WriteBadGateway(w, "connection_aborted", "exchange aborted")
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		httputil.WriteBadGateway(w, "connection_aborted", "exchange aborted")
		return
	}
	_ = conn.Close()
}

func writeResponse(w http.ResponseWriter, resp *http.Response) {
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopByHopHeaders(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
