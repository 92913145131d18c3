package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/freelanceops/billing/internal/httpclient"
)

// MockHTTPClient implements httpclient.Client and records every request it receives
type MockHTTPClient struct {
	mu       sync.RWMutex
	routes   map[string]MockResponse
	requests []*httpclient.Request
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	// Delay holds the response back to simulate a slow receiver
	Delay time.Duration
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]MockResponse),
	}
}

// RegisterResponse registers a mock response for URLs ending in url
func (m *MockHTTPClient) RegisterResponse(url string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = resp
}

// Send implements the httpclient.Client interface. Responses of 400 and above are returned
// as httpclient errors, the same way the retrying client reports them.
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	m.mu.RLock()
	var (
		matched MockResponse
		found   bool
	)
	for route, resp := range m.routes {
		if strings.HasSuffix(req.URL, route) {
			matched = resp
			found = true
			break
		}
	}
	m.mu.RUnlock()

	if matched.Delay > 0 {
		select {
		case <-time.After(matched.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !found {
		matched = MockResponse{StatusCode: http.StatusNotFound, Body: []byte("Not Found")}
	}
	if matched.Headers == nil {
		matched.Headers = map[string]string{}
	}

	resp := &httpclient.Response{
		StatusCode: matched.StatusCode,
		Body:       matched.Body,
		Headers:    matched.Headers,
	}
	if matched.StatusCode >= http.StatusBadRequest {
		return resp, httpclient.NewError(matched.StatusCode, matched.Body)
	}
	return resp, nil
}

// Requests returns a copy of the requests sent so far
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*httpclient.Request(nil), m.requests...)
}

// Clear forgets every registered route and recorded request
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string]MockResponse)
	m.requests = nil
}
