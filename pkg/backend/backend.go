// Package backend is the GraphQL transport to the task backend.
package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Runner executes one GraphQL operation and decodes its data into out.
type Runner interface {
	Run(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error
}

// Client sends authenticated GraphQL requests to the backend endpoint.
type Client struct {
	gql    *graphql.Client
	apiKey string
}

type Option func(*options)

type options struct {
	httpClient *http.Client
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewClient creates a client for endpoint, authenticated by the x-api-key header.
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("backend: endpoint is required")
	}
	o := options{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}

	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(o.httpClient))
	gql.Log = func(s string) {
		// header dumps carry the api key
		if strings.HasPrefix(s, ">> headers") {
			return
		}
		log.Trace().Str("component", "backend").Msg(s)
	}
	return &Client{gql: gql, apiKey: apiKey}, nil
}

func (c *Client) Run(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if err := c.gql.Run(ctx, req, out); err != nil {
		return errors.Wrap(err, "backend request failed")
	}
	return nil
}
