package internal

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Discover performs a DNS-based CalDAV service discovery as described in RFC
// 6764 section 6. It returns the URL to the CalDAV server.
func Discover(ctx context.Context, host string) (string, error) {
	p := ""

	// Only look up the secure (caldavs) SRV record; a plaintext (caldav)
	// record would steer discovery to an insecure endpoint.
	_, addrs, err := net.LookupSRV("caldavs", "tcp", host)
	if dnsErr, ok := err.(*net.DNSError); ok {
		if dnsErr.IsTemporary {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	if len(addrs) > 0 {
		srvTarget := strings.TrimSuffix(addrs[0].Target, ".")

		if srvTarget != "" {
			txtRecs, err := net.LookupTXT(fmt.Sprintf("_caldavs._tcp.%v", host))
			if dnsErr, ok := err.(*net.DNSError); ok {
				if dnsErr.IsTemporary {
					return "", err
				}
			} else if err != nil {
				return "", err
			}

			for _, txtRec := range txtRecs {
				for _, kv := range strings.Split(txtRec, " ") {
					if strings.HasPrefix(strings.ToLower(kv), "path=") {
						p = kv[5:]
						break
					}
				}
				if p != "" {
					break
				}
			}

			if addrs[0].Port == 443 {
				host = srvTarget
			} else {
				host = fmt.Sprintf("%v:%v", srvTarget, addrs[0].Port)
			}
		}
	}

	if p == "" {
		p = "/.well-known/caldav"
	}

	u := url.URL{Scheme: "https", Host: host, Path: p}
	serviceURL := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, serviceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	// Servers might require authentication to perform an OPTIONS request.
	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusUnauthorized {
		return "", fmt.Errorf("webdav: discovery request to %v failed: %v %v", serviceURL, resp.StatusCode, resp.Status)
	}

	return serviceURL, nil
}

// HTTPClient performs HTTP requests. It's implemented by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the low-level WebDAV transport shared by the caldav package. It
// has no notion of CalDAV semantics - it speaks PROPFIND/REPORT/PUT/DELETE
// and decodes multistatus bodies, nothing more.
type Client struct {
	http     HTTPClient
	endpoint *url.URL
}

func NewClient(c HTTPClient, endpoint string) (*Client, error) {
	if c == nil {
		c = http.DefaultClient
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Path == "" {
		// Important to avoid issues with path.Join in ResolveHref.
		u.Path = "/"
	}
	return &Client{http: c, endpoint: u}, nil
}

func (c *Client) ResolveHref(p string) *url.URL {
	if !strings.HasPrefix(p, "/") {
		p = path.Join(c.endpoint.Path, p)
	}
	return &url.URL{
		Scheme: c.endpoint.Scheme,
		User:   c.endpoint.User,
		Host:   c.endpoint.Host,
		Path:   p,
	}
}

func (c *Client) NewRequest(ctx context.Context, method string, p string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, c.ResolveHref(p).String(), body)
}

func (c *Client) NewXMLRequest(ctx context.Context, method string, p string, v interface{}) (*http.Request, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	req, err := c.NewRequest(ctx, method, p, &buf)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)

	return req, nil
}

// Do sends req and wraps any non-2xx response into an *HTTPError, attempting
// to recover a human-readable message from a DAV:error body or a short
// text/plain body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "text/plain"
		}

		var wrappedErr error
		t, _, _ := mime.ParseMediaType(contentType)
		if t == "application/xml" || t == "text/xml" {
			var davErr Error
			if err := xml.NewDecoder(resp.Body).Decode(&davErr); err != nil {
				wrappedErr = err
			} else {
				wrappedErr = &davErr
			}
		} else if strings.HasPrefix(t, "text/") {
			lr := io.LimitedReader{R: resp.Body, N: 1024}
			var buf bytes.Buffer
			io.Copy(&buf, &lr)
			if s := strings.TrimSpace(buf.String()); s != "" {
				if lr.N == 0 {
					s += " […]"
				}
				wrappedErr = fmt.Errorf("%v", s)
			}
		}
		return nil, &HTTPError{Code: resp.StatusCode, Err: wrappedErr}
	}
	return resp, nil
}

func (c *Client) DoMultiStatus(req *http.Request) (*Multistatus, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("webdav: expected a multi-status response, got: %v", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webdav: failed to read multistatus body: %w", err)
	}
	body = SanitizeNamespacePrefix(body)

	var ms Multistatus
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&ms); err != nil {
		return nil, fmt.Errorf("webdav: failed to decode multistatus body: %w", err)
	}

	return &ms, nil
}

func (c *Client) PropFind(ctx context.Context, p string, depth Depth, propfind *Propfind) (*Multistatus, error) {
	req, err := c.NewXMLRequest(ctx, "PROPFIND", p, propfind)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Depth", depth.String())

	return c.DoMultiStatus(req)
}

// PropFindFlat performs a PROPFIND request with a zero depth and returns the
// single Response for p.
func (c *Client) PropFindFlat(ctx context.Context, p string, propfind *Propfind) (*Response, error) {
	ms, err := c.PropFind(ctx, p, DepthZero, propfind)
	if err != nil {
		return nil, err
	}

	return ms.Get(c.ResolveHref(p).Path)
}

// Report performs a REPORT request (RFC 3253 section 3.6), used by the
// caldav package for calendar-query, calendar-multiget and sync-collection.
func (c *Client) Report(ctx context.Context, p string, depth Depth, query interface{}) (*Multistatus, error) {
	req, err := c.NewXMLRequest(ctx, "REPORT", p, query)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Depth", depth.String())

	return c.DoMultiStatus(req)
}

func parseCommaSeparatedSet(values []string, upper bool) map[string]bool {
	m := make(map[string]bool)
	for _, v := range values {
		fields := strings.FieldsFunc(v, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		for _, f := range fields {
			if upper {
				f = strings.ToUpper(f)
			} else {
				f = strings.ToLower(f)
			}
			m[f] = true
		}
	}
	return m
}

func (c *Client) Options(ctx context.Context, p string) (classes map[string]bool, methods map[string]bool, err error) {
	req, err := c.NewRequest(ctx, http.MethodOptions, p, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, nil, err
	}
	resp.Body.Close()

	classes = parseCommaSeparatedSet(resp.Header["Dav"], false)
	if !classes["1"] {
		return nil, nil, fmt.Errorf("webdav: server doesn't support DAV class 1")
	}

	methods = parseCommaSeparatedSet(resp.Header["Allow"], true)
	return classes, methods, nil
}

// SyncCollection performs a sync-collection REPORT (RFC 6578 section 3.2).
// An empty syncToken requests an initial sync.
func (c *Client) SyncCollection(ctx context.Context, p, syncToken string, level Depth, limit *Limit, prop *Prop) (*Multistatus, error) {
	q := SyncCollectionQuery{
		SyncToken: syncToken,
		SyncLevel: level.String(),
		Limit:     limit,
		Prop:      prop,
	}

	req, err := c.NewXMLRequest(ctx, "REPORT", p, &q)
	if err != nil {
		return nil, err
	}

	return c.DoMultiStatus(req)
}
