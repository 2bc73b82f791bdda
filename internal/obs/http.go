package obs

import (
	"net/http"
	"strings"
	"time"

	"github.com/quickmark-app/quickmark/internal/logutil"
	"github.com/quickmark-app/quickmark/internal/session"
)

// ResponseRecorder tracks response status and bytes written.
type ResponseRecorder struct {
	http.ResponseWriter
	statusCode  int
	respBytes   int64
	wroteHeader bool
}

func (r *ResponseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *ResponseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.statusCode = http.StatusOK
		r.wroteHeader = true
	}
	n, err := r.ResponseWriter.Write(p)
	r.respBytes += int64(n)
	return n, err
}

func (r *ResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *ResponseRecorder) StatusCode() int {
	return r.statusCode
}

func (r *ResponseRecorder) RespBytes() int64 {
	return r.respBytes
}

// RequestLogMiddleware injects correlation into the request context and
// logs one line per request with redacted headers.
func RequestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = NewRequestID()
		}

		sessionID := ""
		if cookie, err := r.Cookie(session.SessionCookieName); err == nil {
			sessionID = cookie.Value
		}

		ctx := WithCorrelation(r.Context(), Correlation{
			RequestID: requestID,
			SessionID: sessionID,
		})
		r = r.WithContext(ctx)

		recorder := &ResponseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		From(ctx).Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.StatusCode(),
			"bytes", recorder.RespBytes(),
			"duration_ms", time.Since(start).Milliseconds(),
			"headers", logutil.FormatHeadersForLog(r.Header),
		)
	})
}
