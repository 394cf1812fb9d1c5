package main

import (
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/labstack/echo/v4"
)

type proxyFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// maxBodyBytes bounds webhook payloads; Telegram updates are small.
const maxBodyBytes = 1 << 20

// proxy adapts an API Gateway proxy handler to echo.
func proxy(fn proxyFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}

		req := events.APIGatewayProxyRequest{
			HTTPMethod:        r.Method,
			Path:              r.URL.Path,
			Headers:           make(map[string]string, len(r.Header)),
			MultiValueHeaders: make(map[string][]string, len(r.Header)),
			Body:              string(body),
		}
		for k, vs := range r.Header {
			req.MultiValueHeaders[k] = vs
			if len(vs) > 0 {
				req.Headers[k] = vs[0]
			}
		}
		if q := r.URL.Query(); len(q) > 0 {
			req.QueryStringParameters = make(map[string]string, len(q))
			for k := range q {
				req.QueryStringParameters[k] = q.Get(k)
			}
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			return err
		}
		for k, v := range resp.Headers {
			c.Response().Header().Set(k, v)
		}
		return c.Blob(resp.StatusCode, c.Response().Header().Get(echo.HeaderContentType), []byte(resp.Body))
	}
}
