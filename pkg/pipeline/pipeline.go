package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/faultd/faultd/pkg/action"
	"github.com/faultd/faultd/pkg/matching"
	"github.com/faultd/faultd/pkg/rule"
)

// Pipeline evaluates rules against requests and responses and applies
// the first matching rule's actions. It is safe for concurrent use by
// any number of exchanges.
type Pipeline struct {
	rules  atomic.Pointer[[]rule.Rule]
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats aggregates pipeline activity since the last reset.
type Stats struct {
	Requests        int64
	Responses       int64
	RequestMatches  int64
	ResponseMatches int64
	Aborts          int64
	ByRule          map[string]int64
}

// New creates a pipeline over an initial rule set. The logger may be
// nil, in which case matches are not logged.
func New(rules []rule.Rule, logger *slog.Logger) *Pipeline {
	p := &Pipeline{logger: logger}
	p.Swap(rules)
	p.stats.ByRule = make(map[string]int64)
	return p
}

// Swap atomically installs a new rule snapshot. In-flight exchanges
// keep evaluating against the snapshot they started with.
func (p *Pipeline) Swap(rules []rule.Rule) {
	snapshot := make([]rule.Rule, len(rules))
	copy(snapshot, rules)
	p.rules.Store(&snapshot)
}

// Rules returns the current rule snapshot.
func (p *Pipeline) Rules() []rule.Rule {
	return *p.rules.Load()
}

// ApplyRequest captures the inbound request context, evaluates
// request-target rules in declaration order, and applies the first
// match. The returned context must be carried to ApplyResponse so
// response rules see the original request, not the mutated one.
//
// On action.ErrAborted the exchange must be terminated; on a rewrite
// error the request must not be forwarded.
func (p *Pipeline) ApplyRequest(ctx context.Context, port int, req *http.Request) (*matching.RequestContext, *http.Request, error) {
	rc := matching.Capture(port, req)
	p.count(func(s *Stats) { s.Requests++ })

	rules := p.Rules()
	for i := range rules {
		r := &rules[i]
		if r.Target != rule.TargetRequest || !matching.Request(port, req, &r.Selector) {
			continue
		}

		p.count(func(s *Stats) {
			s.RequestMatches++
			s.ByRule[r.ID]++
		})
		p.logMatch(r, "request", rc)

		mutated, err := action.ApplyRequest(ctx, req, &r.Actions)
		if errors.Is(err, action.ErrAborted) {
			p.count(func(s *Stats) { s.Aborts++ })
		}
		return rc, mutated, err
	}

	return rc, req, nil
}

// ApplyResponse evaluates response-target rules against a response and
// the captured context of the request that produced it, applying the
// first match.
func (p *Pipeline) ApplyResponse(ctx context.Context, rc *matching.RequestContext, resp *http.Response) (*http.Response, error) {
	p.count(func(s *Stats) { s.Responses++ })

	rules := p.Rules()
	for i := range rules {
		r := &rules[i]
		if r.Target != rule.TargetResponse || !matching.Response(rc, resp, &r.Selector) {
			continue
		}

		p.count(func(s *Stats) {
			s.ResponseMatches++
			s.ByRule[r.ID]++
		})
		p.logMatch(r, "response", rc)

		mutated, err := action.ApplyResponse(ctx, resp, &r.Actions)
		if errors.Is(err, action.ErrAborted) {
			p.count(func(s *Stats) { s.Aborts++ })
		}
		return mutated, err
	}

	return resp, nil
}

// GetStats returns a copy of the current statistics.
func (p *Pipeline) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.stats
	out.ByRule = make(map[string]int64, len(p.stats.ByRule))
	for k, v := range p.stats.ByRule {
		out.ByRule[k] = v
	}
	return out
}

// ResetStats zeroes all counters.
func (p *Pipeline) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{ByRule: make(map[string]int64)}
}

func (p *Pipeline) count(fn func(*Stats)) {
	p.mu.Lock()
	fn(&p.stats)
	p.mu.Unlock()
}

func (p *Pipeline) logMatch(r *rule.Rule, side string, rc *matching.RequestContext) {
	if p.logger == nil {
		return
	}
	p.logger.Debug("rule matched",
		"rule", r.ID,
		"side", side,
		"port", rc.Port,
		"method", rc.Method,
		"path", rc.URL.Path,
	)
}
