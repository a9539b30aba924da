// Package wiretransport is the dispatch engine's producer-contract
// collaborator: a configurable client builder, a RoundTrip capability and a
// chunked response-body stream. Connection pooling, TLS, HTTP/2
// negotiation, and proxy selection are all treated as someone else's
// problem — a narrow interface is all the dispatch engine consumes, and
// it's backed here by net/http.Transport rather than a hand-rolled
// connection-pool state machine (see DESIGN.md).
package wiretransport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/badu/dispatch/errs"
)

// Config mirrors the transport configuration consumed by Agent
// construction: an optional connect timeout and pool idle timeout, plus
// the idle-connection cap and TLS verification switch. There is no total
// request timeout setting. Zero values mean "use the transport's own
// default".
type Config struct {
	ConnectTimeoutMS   int `env:"DISPATCH_CONNECT_TIMEOUT_MS" envDefault:"0"`
	PoolIdleTimeoutMS  int `env:"DISPATCH_POOL_IDLE_TIMEOUT_MS" envDefault:"90000"`
	MaxIdleConns       int `env:"DISPATCH_MAX_IDLE_CONNS" envDefault:"100"`
	InsecureSkipVerify bool `env:"DISPATCH_INSECURE_SKIP_VERIFY" envDefault:"false"`
}

// ConfigFromEnv loads a Config from DISPATCH_* environment variables,
// falling back to the struct defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("wiretransport: parsing env config: %w", err)
	}
	return cfg, nil
}

// Client is the narrow capability set the dispatch engine consumes: build a
// request, get back a streaming response or an error.
type Client interface {
	RoundTrip(req *Request) (*Response, error)
	CloseIdleConnections()
}

type client struct {
	rt *http.Transport
}

// New builds a Client from Config. A malformed configuration is reported as
// errs.InvalidArgument via errs.FromTransport's builder-error path.
func New(cfg Config) (Client, error) {
	if cfg.ConnectTimeoutMS < 0 || cfg.PoolIdleTimeoutMS < 0 || cfg.MaxIdleConns < 0 {
		return nil, errs.FromTransport(&errs.BuilderError{Detail: "wiretransport: negative duration or conn count in Config"}, false)
	}

	dialer := &net.Dialer{}
	if cfg.ConnectTimeoutMS > 0 {
		dialer.Timeout = time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	}

	rt := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		IdleConnTimeout:       time.Duration(cfg.PoolIdleTimeoutMS) * time.Millisecond,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if cfg.InsecureSkipVerify {
		rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &client{rt: rt}, nil
}

func (c *client) CloseIdleConnections() { c.rt.CloseIdleConnections() }
