package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		format    Format
		logFunc   func()
		wantEmpty bool
		contains  string
	}{
		{"json info", LevelInfo, FormatJSON, func() { Info("corpus ready") }, false, `"msg":"corpus ready"`},
		{"text info", LevelInfo, FormatText, func() { Info("corpus ready") }, false, "msg=\"corpus ready\""},
		{"debug filtered at warn", LevelWarn, FormatJSON, func() { Debug("hidden") }, true, ""},
		{"error shown at error", LevelError, FormatText, func() { Error("broken") }, false, "broken"},
		{"debug shown at debug", LevelDebug, FormatJSON, func() { Debug("visible") }, false, "visible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitLogger(&buf, tt.level, tt.format)
			defer InitLogger(&bytes.Buffer{}, LevelWarn, FormatText)

			tt.logFunc()

			out := buf.String()
			if tt.wantEmpty {
				if out != "" {
					t.Errorf("expected no output, got %q", out)
				}
				return
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("expected output to contain %q, got %q", tt.contains, out)
			}
		})
	}
}

func TestInitLoggerTimestampFormat(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(&buf, LevelInfo, FormatJSON)
	defer InitLogger(&bytes.Buffer{}, LevelWarn, FormatText)

	Info("timestamp")

	out := buf.String()
	start := strings.Index(out, `"time":"`)
	if start < 0 {
		t.Fatalf("no time field in %q", out)
	}
	value := out[start+len(`"time":"`):]
	value = value[:strings.IndexByte(value, '"')]
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		t.Errorf("time %q is not RFC3339: %v", value, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat("Text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(Text) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestGetRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID = %q, want req-1", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on empty context = %q", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	output := captureLogOutput(func() {
		ctx := WithRequestID(context.Background(), "req-42")
		InfoContext(ctx, "lookup")
	})

	if !strings.Contains(output, `"request_id":"req-42"`) {
		t.Errorf("expected request_id in output, got %q", output)
	}
}

func TestErrorContext(t *testing.T) {
	output := captureLogOutput(func() {
		ErrorContext(context.Background(), "lookup failed", "error", errors.New("boom"))
	})

	if !strings.Contains(output, `"level":"ERROR"`) || !strings.Contains(output, "boom") {
		t.Errorf("unexpected output %q", output)
	}
}

func TestWarnContext(t *testing.T) {
	output := captureLogOutput(func() {
		WarnContext(WithRequestID(context.Background(), "req-7"), "slow_request")
	})

	if !strings.Contains(output, `"level":"WARN"`) || !strings.Contains(output, `"request_id":"req-7"`) {
		t.Errorf("unexpected output %q", output)
	}
}

func TestCorpusLoaded(t *testing.T) {
	output := captureLogOutput(func() {
		CorpusLoaded("/data/kjv.json", 66, 31102, 1500*time.Millisecond, "format", "json")
	})

	for _, want := range []string{`"msg":"corpus_loaded"`, `"books":66`, `"verses":31102`, `"duration_ms":1500`, `"format":"json"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got %q", want, output)
		}
	}
}

func TestAutocorrect(t *testing.T) {
	output := captureLogOutput(func() {
		Autocorrect(context.Background(), "genesiss", "Genesis", "fuzzy")
	})

	for _, want := range []string{`"msg":"book_autocorrect"`, `"input":"genesiss"`, `"canonical":"Genesis"`, `"match":"fuzzy"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got %q", want, output)
		}
	}
}

func TestEventHelpers(t *testing.T) {
	tests := []struct {
		name     string
		logFunc  func()
		contains []string
	}{
		{
			name:     "websocket",
			logFunc:  func() { WebSocketEvent("connect", "abc") },
			contains: []string{`"msg":"websocket_event"`, `"session_id":"abc"`},
		},
		{
			name:     "startup",
			logFunc:  func() { ServerStartup("api", "http", 8080) },
			contains: []string{`"msg":"server_startup"`, `"port":8080`},
		},
		{
			name:     "security",
			logFunc:  func() { SecurityEvent("rate_limited", "api", "ip", "1.2.3.4") },
			contains: []string{`"level":"WARN"`, `"event":"rate_limited"`, `"ip":"1.2.3.4"`},
		},
		{
			name:     "http request",
			logFunc:  func() { HTTPRequestContext(context.Background(), "GET", "/lookup", "127.0.0.1", 200, time.Second) },
			contains: []string{`"msg":"http_request"`, `"path":"/lookup"`, `"status_code":200`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.logFunc)
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %s, got %q", want, output)
				}
			}
		})
	}
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, rw.statusCode)
	}
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Recorder code = %d", recorder.Code)
	}
}

func TestResponseWriter_Write(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	n, err := rw.Write([]byte("In the beginning"))
	if err != nil || n != 16 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if !rw.written || rw.statusCode != http.StatusOK {
		t.Errorf("written=%v status=%d", rw.written, rw.statusCode)
	}
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("expected error from recorder without Hijacker")
	}
	if rw.Unwrap() == nil {
		t.Error("Unwrap returned nil")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantUUID bool
	}{
		{"generate new", "", true},
		{"keep client id", "client-req-123", false},
		{"replace oversized", strings.Repeat("x", maxRequestIDLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got != ctxID {
				t.Errorf("header %q does not match context %q", got, ctxID)
			}
			if tt.wantUUID {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("expected a UUID, got %q", got)
				}
			} else if got != tt.header {
				t.Errorf("expected %q, got %q", tt.header, got)
			}
		})
	}
}

func TestCombinedMiddleware(t *testing.T) {
	output := captureLogOutput(func() {
		handler := CombinedMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	})

	for _, want := range []string{`"path":"/books"`, `"status_code":418`, `"request_id":`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got %q", want, output)
		}
	}
}
