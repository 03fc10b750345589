package spclient

import (
	"bytes"
	"context"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/api"
)

// Transport posts a SOAP envelope and returns the raw response body. A non-2xx
// response may return both the body and an error.
type Transport interface {
	Post(ctx context.Context, endpoint string, body []byte, headers map[string]string) ([]byte, error)
}

// GosipTransport sends requests through a gosip authenticated HTTP client.
type GosipTransport struct {
	client        *api.HTTPClient
	defaultConfig *api.RequestConfig
}

func NewGosipTransport(authClient *gosip.SPClient) *GosipTransport {
	return &GosipTransport{
		client:        api.NewHTTPClient(authClient),
		defaultConfig: &api.RequestConfig{},
	}
}

// createRequestConfig copies the default configuration and attaches ctx and headers.
func (t *GosipTransport) createRequestConfig(ctx context.Context, headers map[string]string) *api.RequestConfig {
	config := *t.defaultConfig
	config.Context = ctx
	config.Headers = headers
	return &config
}

func (t *GosipTransport) Post(ctx context.Context, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	return t.client.Post(endpoint, bytes.NewReader(body), t.createRequestConfig(ctx, headers))
}
