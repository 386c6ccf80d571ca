package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
	console = true
)

// Init routes the standard logger to stdout plus an optional append-only
// log file. Passing an empty path logs to stdout only.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
	}

	applyOutput()
	return nil
}

// SetConsole enables or disables the stdout copy of log output, so an
// interactive display can own the terminal. The log file, when configured,
// keeps receiving events either way.
func SetConsole(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	console = enabled
	applyOutput()
}

// applyOutput rebuilds the logger destination from the current console and
// file state. Callers must hold mu.
func applyOutput() {
	var writers []io.Writer
	if console {
		writers = append(writers, os.Stdout)
	}
	if logFile != nil {
		writers = append(writers, logFile)
	}
	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(io.MultiWriter(writers...))
}

// Close flushes and closes the log file, restoring stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// LogEvent records a formatted application event.
func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// LogRequest records traffic between the evaluator and a model provider.
// Direction is EVAL->LLM for outbound requests and LLM->EVAL for responses.
func LogRequest(direction, provider, model, caseID string, payload any) {
	msg := buildRequestMessage(direction, provider, model, caseID, payload)
	log.Println(msg)
}

func buildRequestMessage(direction, provider, model, caseID string, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	providerValue := strings.TrimSpace(provider)
	if providerValue == "" {
		providerValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("provider=%s", providerValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if caseID = strings.TrimSpace(caseID); caseID != "" {
		parts = append(parts, fmt.Sprintf("case=%s", caseID))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
