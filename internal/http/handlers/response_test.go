package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Test_fail_ServerErrorLogsAndRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Request-scoped logger captured into a buffer, plus a request id the
	// way RequestID middleware would set one.
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})

	r.POST("/api/v1/deliveries", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeDispatchFailed, "dispatch queue unavailable")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/deliveries", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeDispatchFailed || resp.Message != "dispatch queue unavailable" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	logged := buf.String()
	if !strings.Contains(logged, `"level":"error"`) || !strings.Contains(logged, ErrCodeDispatchFailed) {
		t.Fatalf("expected the 5xx logged with its code, got: %s", logged)
	}
}

func Test_fail_ClientErrorStaysQuiet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Set("logger", &logger)
		c.Next()
	})

	// Exported Fail, the same path NoRoute uses.
	r.GET("/api/v1/jobs/:id", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-404", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID != "rid-404" || er.Code != ErrCodeNotFound || er.Message != "job not found" {
		t.Fatalf("unexpected envelope: %+v", er)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not hit the error log, got: %s", buf.String())
	}
}

func Test_ok_WritesStatusAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/api/v1/deliveries", func(c *gin.Context) {
		ok(c, http.StatusAccepted, gin.H{"job_id": "job-9", "expected_count": 3})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/deliveries", nil))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["job_id"] != "job-9" || int(body["expected_count"].(float64)) != 3 {
		t.Fatalf("unexpected body: %#v", body)
	}
}
