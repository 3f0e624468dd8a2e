package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-retryablehttp"
)

var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// forwardedRequestHeaders are copied from the client to the audio upstream.
var forwardedRequestHeaders = []string{"Range", "If-Range", "User-Agent"}

// stripHopByHop removes connection-scoped headers, including any the
// Connection header itself nominates.
func stripHopByHop(h http.Header) {
	for _, value := range h.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

func (s *Server) upstreamCookie(c *gin.Context, server string) string {
	if s.useServerCookie && s.cookies != nil {
		if cookie := s.cookies.Get(c.Request.Context(), server); cookie != "" {
			return cookie
		}
	}
	if s.forwardClientCookie {
		return c.GetHeader("Cookie")
	}
	return ""
}

// stream pipes the audio at target to the client, keeping the upstream
// status so range requests come back as 206.
func (s *Server) stream(c *gin.Context, server, target string) {
	req, err := retryablehttp.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, name := range forwardedRequestHeaders {
		if v := c.GetHeader(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	if cookie := s.upstreamCookie(c, server); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.streamClient.Do(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer resp.Body.Close()

	header := resp.Header.Clone()
	stripHopByHop(header)
	if s.suppressSetCookie {
		header.Del("Set-Cookie")
	}
	out := c.Writer.Header()
	for name, values := range header {
		// Our CORS headers win over the upstream's.
		if strings.HasPrefix(name, "Access-Control-") {
			continue
		}
		for _, v := range values {
			out.Add(name, v)
		}
	}

	c.Status(resp.StatusCode)
	buf := make([]byte, 256*1024)
	if _, err := io.CopyBuffer(c.Writer, resp.Body, buf); err != nil && s.logger != nil {
		s.logger.Debug("stream copy aborted", "server", server, "error", err)
	}
}
