package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/google/uuid"

	"github.com/bobinette/papershelf/clients/internal"
	"github.com/bobinette/papershelf/errors"
	"github.com/bobinette/papershelf/log"
)

const RequestIDHeader = "X-Request-ID"

// transportMessage is shown to users when the server could not be reached.
const transportMessage = "could not reach the server"

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the papershelf HTTP API. It holds no state besides its
// configuration and is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	logger  log.Logger

	endpoint endpoint.Endpoint
}

type request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
}

func NewClient(c HTTPClient, baseURL string, logger log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.New("invalid api url", errors.WithCause(err))
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid api url: " + baseURL)
	}

	client := &Client{
		baseURL: u,
		logger:  logger,
	}

	client.endpoint = kithttp.NewExplicitClient(
		client.createRequest,
		internal.DecodeResponse,
		kithttp.SetClient(transport{c}),
		kithttp.ClientBefore(setRequestID),
		kithttp.ClientAfter(client.logResponse),
	).Endpoint()

	return client, nil
}

// do sends the request and decodes the JSON body into out, if any.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	res, err := c.endpoint(ctx, req)
	if err != nil {
		c.logger.Debugf("%s %s failed: %v", req.Method, req.Path, err)
		return err
	}

	data, _ := res.([]byte)
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.New("invalid response from server", errors.WithCode(http.StatusBadGateway), errors.WithCause(err))
	}
	return nil
}

func (c *Client) createRequest(ctx context.Context, r interface{}) (*http.Request, error) {
	req, ok := r.(request)
	if !ok {
		return nil, errors.New("invalid request")
	}

	u := *c.baseURL
	u.Path = u.Path + req.Path
	u.RawQuery = req.Query.Encode()

	var body io.Reader
	if req.Body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(req.Body); err != nil {
			return nil, errors.New("could not encode request", errors.WithCause(err))
		}
		body = buf
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

func (c *Client) logResponse(ctx context.Context, res *http.Response) context.Context {
	if res.Request != nil {
		c.logger.
			WithField("request_id", res.Request.Header.Get(RequestIDHeader)).
			Debugf("%s %s: %d", res.Request.Method, res.Request.URL.Path, res.StatusCode)
	}
	return ctx
}

func setRequestID(ctx context.Context, r *http.Request) context.Context {
	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return ctx
}

// transport marks every error of the underlying client as a transport
// failure: no response was received.
type transport struct {
	client HTTPClient
}

func (t transport) Do(req *http.Request) (*http.Response, error) {
	res, err := t.client.Do(req)
	if err != nil {
		return nil, errors.New(transportMessage, errors.WithKind(errors.Transport), errors.WithCause(err))
	}
	return res, nil
}
