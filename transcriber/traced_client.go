package transcriber

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"hark/log"
)

// TracedClient is an http.Client that records per-phase timings for every
// request it sends.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient() *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// phases collects the instants httptrace reports. Each duration in the
// resulting NetworkMetrics runs from one mark to the next.
type phases struct {
	m NetworkMetrics

	getConn, dns, connect, handshake time.Time
	gotConn, headers, request, first time.Time
}

func (p *phases) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { p.getConn = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			p.gotConn = time.Now()
			p.m.ConnWait = p.gotConn.Sub(p.getConn)
			p.m.ConnReused = info.Reused
		},
		DNSStart:          func(httptrace.DNSStartInfo) { p.dns = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { p.m.DNS = time.Since(p.dns) },
		ConnectStart:      func(_, _ string) { p.connect = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { p.m.TCP = time.Since(p.connect) },
		TLSHandshakeStart: func() { p.handshake = time.Now() },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { p.m.TLS = time.Since(p.handshake) },
		WroteHeaders: func() {
			p.headers = time.Now()
			p.m.ReqHeaders = p.headers.Sub(p.gotConn)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			p.request = time.Now()
			p.m.ReqBody = p.request.Sub(p.headers)
		},
		GotFirstResponseByte: func() {
			p.first = time.Now()
			p.m.TTFB = p.first.Sub(p.request)
		},
	}
}

// Do sends req and reads the whole body.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	p := &phases{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), p.trace()))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !p.first.IsZero() {
		p.m.Download = time.Since(p.first)
	}
	p.m.Total = time.Since(start)

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    &p.m,
	}, nil
}

// Warm opens a connection to url so the first real request skips the
// handshake. It returns how long the TLS handshake took, zero when none
// happened or the request failed.
func (c *TracedClient) Warm(url string) time.Duration {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	p := &phases{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), p.trace()))
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return p.m.TLS
}

func logNetwork(provider string, m *NetworkMetrics) {
	if m == nil {
		return
	}
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	log.Network(provider, log.NetworkTimings{
		DNSMs:      ms(m.DNS),
		TLSMs:      ms(m.TLS),
		TTFBMs:     ms(m.TTFB),
		TotalMs:    ms(m.Total),
		ConnReused: m.ConnReused,
	})
}
