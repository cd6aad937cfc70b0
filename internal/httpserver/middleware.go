package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-Id"
	reqBodyLimit    = 8 * 1024
	maxBodyBytes    = 1 << 20
	identityKey     = "identity"
	redacted        = "***redacted***"
)

var sensitiveKeys = map[string]bool{
	"password":           true,
	"authorization":      true,
	"token":              true,
	"secret":             true,
	"razorpay_signature": true,
}

// redactJSON masks sensitive keys at any depth. Non-JSON input is returned unchanged.
func redactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return raw
	}
	var scrub func(interface{}) interface{}
	scrub = func(x interface{}) interface{} {
		switch v := x.(type) {
		case map[string]interface{}:
			for k, val := range v {
				if sensitiveKeys[strings.ToLower(k)] {
					v[k] = redacted
					continue
				}
				v[k] = scrub(val)
			}
			return v
		case []interface{}:
			for i := range v {
				v[i] = scrub(v[i])
			}
			return v
		default:
			return v
		}
	}
	out, err := json.Marshal(scrub(doc))
	if err != nil {
		return raw
	}
	return out
}

// requestLogger logs one line per request with a redacted copy of JSON bodies.
// Handlers still receive the original body.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, reqID)
		}
		c.Header(requestIDHeader, reqID)

		var reqBody []byte
		tooLarge := false
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
			if strings.Contains(c.GetHeader("Content-Type"), "application/json") {
				body, err := io.ReadAll(c.Request.Body)
				_ = c.Request.Body.Close()
				var maxErr *http.MaxBytesError
				tooLarge = errors.As(err, &maxErr)
				c.Request.Body = io.NopCloser(bytes.NewReader(body))
				if len(body) > reqBodyLimit {
					body = body[:reqBodyLimit]
				}
				reqBody = redactJSON(body)
			}
		}

		if tooLarge {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody("request body too large"))
		} else {
			c.Next()
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := logrus.Fields{
			"req_id": reqID,
			"method": c.Request.Method,
			"path":   path,
			"status": c.Writer.Status(),
			"dur_ms": time.Since(start).Milliseconds(),
			"remote": c.ClientIP(),
		}
		if len(reqBody) > 0 {
			fields["req_body"] = string(reqBody)
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(float64(time.Since(start).Milliseconds()))
	}
}

// tokenFrom reads the identity token from the Authorization header, falling
// back to the identity cookie.
func tokenFrom(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}

func requireUser(tokens TokenVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c, cookieName)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing token"))
			return
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid token"))
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func requireAdmin(gate AdminAuthorizer, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gate.Authorize(tokenFrom(c, cookieName))
		if err != nil {
			status, _ := statusFor(err)
			c.AbortWithStatusJSON(status, errorBody(http.StatusText(status)))
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// requireCookie is the edge check for console pages: presence only.
func requireCookie(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, err := c.Cookie(cookieName); err != nil || v == "" {
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(auth.Identity)
	return id
}
