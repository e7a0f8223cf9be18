package action

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/faultd/faultd/pkg/rewrite"
	"github.com/faultd/faultd/pkg/rule"
)

// ErrAborted is returned when a rule requests that the exchange be
// terminated instead of forwarded. It is a deliberate, rule-driven
// outcome, not an engine failure.
var ErrAborted = errors.New("abort applied")

// ApplyRequest mutates a request according to the action set and
// returns it. Steps run in order: abort, append (queries then headers),
// replace (path, method, body, queries, headers), delay. The request is
// owned exclusively by the calling exchange; on ErrAborted or a rewrite
// error the request must not be forwarded.
func ApplyRequest(ctx context.Context, req *http.Request, a *rule.Actions) (*http.Request, error) {
	if a.Abort {
		return nil, ErrAborted
	}

	if a.Append != nil {
		u, err := rewrite.AppendQueries(req.URL, a.Append.Queries)
		if err != nil {
			return nil, err
		}
		req.URL = u
		addHeaders(req.Header, a.Append.Headers)
	}

	if a.Replace != nil {
		// Path replacement must run before query replacement: the
		// replaced query reattaches to whatever path exists at that
		// point.
		u, err := rewrite.ReplacePath(req.URL, a.Replace.Path)
		if err != nil {
			return nil, err
		}
		req.URL = u

		if a.Replace.Method != nil {
			req.Method = *a.Replace.Method
		}

		if a.Replace.Body != nil {
			setRequestBody(req, a.Replace.Body)
		}

		u, err = rewrite.ReplaceQueries(req.URL, a.Replace.Queries)
		if err != nil {
			return nil, err
		}
		req.URL = u

		setHeaders(req.Header, a.Replace.Headers)
	}

	if err := sleep(ctx, a.Delay); err != nil {
		return nil, err
	}
	return req, nil
}

// ApplyResponse mutates a response according to the action set and
// returns it. Responses have no query or path, so the append step adds
// headers only and the replace step covers status code, body, and
// headers. On any error the response body is closed before returning,
// since the caller gets nothing back to close.
func ApplyResponse(ctx context.Context, resp *http.Response, a *rule.Actions) (*http.Response, error) {
	if a.Abort {
		closeBody(resp)
		return nil, ErrAborted
	}

	if a.Append != nil {
		addHeaders(resp.Header, a.Append.Headers)
	}

	if a.Replace != nil {
		if a.Replace.Code != nil {
			resp.StatusCode = *a.Replace.Code
			resp.Status = strconv.Itoa(*a.Replace.Code) + " " + http.StatusText(*a.Replace.Code)
		}

		if a.Replace.Body != nil {
			setResponseBody(resp, a.Replace.Body)
		}

		setHeaders(resp.Header, a.Replace.Headers)
	}

	if err := sleep(ctx, a.Delay); err != nil {
		closeBody(resp)
		return nil, err
	}
	return resp, nil
}

func closeBody(resp *http.Response) {
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
}

// addHeaders adds each value as an additional occurrence without
// touching existing values.
func addHeaders(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// setHeaders replaces all prior values for each listed header name.
func setHeaders(dst, src http.Header) {
	for name, values := range src {
		dst.Del(name)
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func setRequestBody(req *http.Request, body []byte) {
	buf := bytes.Clone(body)
	req.Body = io.NopCloser(bytes.NewReader(buf))
	req.ContentLength = int64(len(buf))
	req.Header.Set("Content-Length", strconv.Itoa(len(buf)))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
}

func setResponseBody(resp *http.Response, body []byte) {
	buf := bytes.Clone(body)
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	resp.Body = io.NopCloser(bytes.NewReader(buf))
	resp.ContentLength = int64(len(buf))
	resp.Header.Set("Content-Length", strconv.Itoa(len(buf)))
}

// sleep suspends only the calling exchange until the delay elapses or
// its context is cancelled. Mutation is already complete by the time
// sleep runs, so cancellation here never exposes partial state.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
