// Package prober implements the per-node blocklist probe using gocolly.
package prober

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

// blocklistPath is the well-known public endpoint; it is fixed across the
// federated network and not configurable per node.
const blocklistPath = "/api/v1/instance/domain_blocks"

// Config controls probe behavior.
type Config struct {
	UserAgent string
	// Timeout bounds each of the two requests (gate and fetch) separately.
	Timeout time.Duration
	// Transport overrides the HTTP transport; nil selects a pooled default.
	Transport http.RoundTripper
}

// Prober fetches one node's blocklist: a cheap HEAD gate on the declared
// content type, then the full GET. Every failure mode is absorbed into the
// Outcome's SkipReason so the coordinator can treat all nodes identically.
type Prober struct {
	cfg           Config
	baseCollector *colly.Collector
	clock         blocklist.Clock
	logger        *zap.Logger
}

// New builds a Prober.
func New(cfg Config, clock blocklist.Clock, logger *zap.Logger) *Prober {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Transport == nil {
		cfg.Transport = newHTTPTransport(cfg.Timeout)
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.WithTransport(cfg.Transport)
	return &Prober{
		cfg:           cfg,
		baseCollector: c,
		clock:         clock,
		logger:        logger,
	}
}

// ruleEntry mirrors one element of the node's JSON response. Every field is
// optional; absent fields map to empty strings.
type ruleEntry struct {
	Domain   string `json:"domain"`
	Severity string `json:"severity"`
	Comment  string `json:"comment"`
}

// Probe checks the node's blocklist endpoint and returns its normalized
// rules, or a skipped Outcome naming why the node contributed nothing.
func (p *Prober) Probe(ctx context.Context, node string) blocklist.Outcome {
	endpoint := "https://" + node + blocklistPath

	if skip := p.gate(ctx, endpoint); skip != blocklist.SkipNone {
		p.logger.Debug("node gated",
			zap.String("node", node),
			zap.String("reason", string(skip)),
		)
		return blocklist.Outcome{Node: node, Skip: skip}
	}

	body, skip := p.fetch(ctx, endpoint)
	if skip != blocklist.SkipNone {
		p.logger.Debug("node fetch skipped",
			zap.String("node", node),
			zap.String("reason", string(skip)),
		)
		return blocklist.Outcome{Node: node, Skip: skip}
	}

	var entries []ruleEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		p.logger.Debug("node body unparsable", zap.String("node", node), zap.Error(err))
		return blocklist.Outcome{Node: node, Skip: blocklist.SkipParse}
	}

	observed := p.clock.Now().UTC().Truncate(24 * time.Hour)
	rules := make([]blocklist.Rule, 0, len(entries))
	for _, e := range entries {
		// Entries missing a domain are mapped through; filtering belongs
		// downstream.
		rules = append(rules, blocklist.Rule{
			SourceNode:    node,
			BlockedDomain: e.Domain,
			Severity:      e.Severity,
			Comment:       e.Comment,
			ObservedAt:    observed,
		})
	}
	return blocklist.Outcome{Node: node, Rules: rules}
}

// gate issues the HEAD request and rejects nodes whose declared content type
// is not JSON. Most of the population either lacks the endpoint or answers
// with an HTML error page, so this short-circuit saves the full fetch.
func (p *Prober) gate(ctx context.Context, endpoint string) blocklist.SkipReason {
	var (
		contentType string
		errResp     *colly.Response
		fetchErr    error
	)
	collector := p.newCollector()
	collector.OnResponse(func(r *colly.Response) {
		contentType = r.Headers.Get("Content-Type")
	})
	collector.OnError(func(r *colly.Response, err error) {
		errResp = r
		fetchErr = err
	})

	if err := p.run(ctx, func() error { return collector.Head(endpoint) }); err != nil {
		return classify(err, errResp, fetchErr)
	}
	if fetchErr != nil {
		return classify(fetchErr, errResp, fetchErr)
	}
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return blocklist.SkipContentType
	}
	return blocklist.SkipNone
}

// fetch issues the full GET and returns the raw body.
func (p *Prober) fetch(ctx context.Context, endpoint string) ([]byte, blocklist.SkipReason) {
	var (
		body     []byte
		errResp  *colly.Response
		fetchErr error
	)
	collector := p.newCollector()
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		errResp = r
		fetchErr = err
	})

	if err := p.run(ctx, func() error { return collector.Visit(endpoint) }); err != nil {
		return nil, classify(err, errResp, fetchErr)
	}
	if fetchErr != nil {
		return nil, classify(fetchErr, errResp, fetchErr)
	}
	return body, blocklist.SkipNone
}

func (p *Prober) newCollector() *colly.Collector {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)
	return collector
}

// run executes a collector call on a goroutine so a canceled context cannot
// leave the caller blocked behind a slow handshake.
func (p *Prober) run(ctx context.Context, visit func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- visit()
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("probe canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// classify maps a transport-level failure onto a SkipReason. A response with
// a status code means the node answered but refused; everything else is a
// network-shaped failure split into timeout and other transport errors.
func classify(err error, resp *colly.Response, fetchErr error) blocklist.SkipReason {
	if resp != nil && resp.StatusCode > 0 && fetchErr != nil {
		return blocklist.SkipStatus
	}
	if isTimeout(err) || isTimeout(fetchErr) {
		return blocklist.SkipTimeout
	}
	return blocklist.SkipTransport
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
