package storex

import (
	"context"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"go.opentelemetry.io/otel"

	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/storex/internal"
)

// SearchOptions configures a SearchClient.
type SearchOptions struct {
	Addresses    []string
	Username     string
	Password     string
	Transport    http.RoundTripper // Base transport; defaults to http.DefaultTransport
	Instrumenter Instrumenter      // Installs client tracing when set
}

// SearchClient wraps an Elasticsearch client whose transport records metrics
// and spans under SearchInstrumentationName.
type SearchClient struct {
	client *elasticsearch.Client
}

// NewSearchClient creates a client. No request is sent until first use.
func NewSearchClient(opts SearchOptions) (*SearchClient, error) {
	if len(opts.Addresses) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, "at least one search address is required")
	}
	rt, err := internal.NewSearchTransport(opts.Transport,
		otel.Meter(SearchInstrumentationName),
		otel.Tracer(SearchInstrumentationName))
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "storex.search", err)
	}

	cfg := elasticsearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: rt,
	}
	if opts.Instrumenter != nil {
		opts.Instrumenter.InstrumentSearch(&cfg)
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "storex.search", err)
	}
	return &SearchClient{client: client}, nil
}

// Client returns the underlying Elasticsearch client.
func (c *SearchClient) Client() *elasticsearch.Client {
	return c.client
}

// Ping implements Store.
func (c *SearchClient) Ping(ctx context.Context) error {
	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search ping: %s", res.Status())
	}
	return nil
}

// Close implements Store. The client holds no resources beyond its transport.
func (c *SearchClient) Close() error {
	return nil
}
