package provider

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"

	"github.com/erg0nix/parley/internal/core"
)

// RequestLogger appends request, response and error entries to a daily JSONL file.
type RequestLogger struct {
	logDir       string
	logRequests  bool
	logResponses bool
	logger       *slog.Logger
	mu           sync.Mutex
}

type LogEntry struct {
	Timestamp  string         `json:"timestamp"`
	RequestID  string         `json:"request_id"`
	Type       string         `json:"type"`
	Operation  string         `json:"operation"`
	Messages   []core.Message `json:"messages,omitempty"`
	Payload    any            `json:"payload,omitempty"`
	Response   any            `json:"response,omitempty"`
	Duration   string         `json:"duration,omitempty"`
	Error      string         `json:"error,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
}

func NewRequestLogger(logDir string, logRequests, logResponses bool, logger *slog.Logger) *RequestLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &RequestLogger{
		logDir:       logDir,
		logRequests:  logRequests,
		logResponses: logResponses,
		logger:       logger,
	}
}

func (l *RequestLogger) LogRequest(requestID core.RequestID, operation string, messages []core.Message, payload any) {
	if l == nil || !l.logRequests {
		return
	}

	l.writeLog(LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: string(requestID),
		Type:      "request",
		Operation: operation,
		Messages:  messages,
		Payload:   payload,
	})
	l.logger.Debug("provider request", "request_id", requestID, "operation", operation, "message_count", len(messages))
}

func (l *RequestLogger) LogResponse(requestID core.RequestID, operation string, response any, duration time.Duration) {
	if l == nil || !l.logResponses {
		return
	}

	l.writeLog(LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: string(requestID),
		Type:      "response",
		Operation: operation,
		Response:  response,
		Duration:  duration.String(),
	})
}

func (l *RequestLogger) LogError(requestID core.RequestID, operation string, statusCode int, err error, messages []core.Message) {
	if l == nil {
		return
	}

	l.writeLog(LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  string(requestID),
		Type:       "error",
		Operation:  operation,
		StatusCode: statusCode,
		Error:      err.Error(),
		Messages:   messages,
	})

	msgSummary := make([]string, 0, min(5, len(messages)))
	start := max(0, len(messages)-5)
	for i := start; i < len(messages); i++ {
		msg := messages[i]
		msgSummary = append(msgSummary, fmt.Sprintf("[%s] %s", msg.Role, truncateRunes(msg.Content, 50)))
	}

	l.logger.Error("provider request failed",
		"request_id", requestID,
		"operation", operation,
		"status_code", statusCode,
		"error", err,
		"recent_messages", msgSummary,
	)
}

func (l *RequestLogger) writeLog(entry LogEntry) {
	if l.logDir == "" {
		return
	}

	data, err := sonic.Marshal(entry)
	if err != nil {
		l.logger.Warn("encode provider log entry", "request_id", entry.RequestID, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_ = os.MkdirAll(l.logDir, 0o755)

	logFile := filepath.Join(l.logDir, fmt.Sprintf("provider_%s.jsonl", time.Now().Format("2006-01-02")))

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// truncateRunes shortens s to at most limit runes, marking the cut with "...".
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
