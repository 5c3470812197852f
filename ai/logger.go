// logger.go provides file-based logging for ALL AI interactions.
//
// Logs are written to <log dir>/ai.log with timestamps, one block per
// request and one per response. The directory defaults to
// ~/.floatwords/logs and can be changed with SetLogDir before first use.
package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	logMu   sync.Mutex
	logDir  string
	logFile *os.File
	logOpen bool
)

// SetLogDir changes where ai.log is written and closes any open file.
func SetLogDir(dir string) {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Close() //nolint:errcheck
		logFile = nil
	}
	logDir = dir
	logOpen = false
}

// initLog opens (or creates) the log file. Called lazily with logMu held.
func initLog() {
	if logOpen {
		return
	}
	logOpen = true

	dir := logDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return
		}
		dir = filepath.Join(homeDir, ".floatwords", "logs")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "ai.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return
	}
	logFile = f
}

func logWrite(s string) {
	logMu.Lock()
	defer logMu.Unlock()
	initLog()
	if logFile != nil {
		logFile.WriteString(s) //nolint:errcheck
	}
}

// LogAIRequest logs an AI request with the given operation name and input details.
func LogAIRequest(operation string, backend string, details map[string]string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"\n"+
			"════════════════════════════════════════════════════════════════\n"+
			"[REQUEST] %s  |  Op: %s  |  Backend: %s\n"+
			"════════════════════════════════════════════════════════════════\n",
		ts, operation, backend,
	))
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s:\n%s\n────────────────────────────────────────\n", k, details[k]))
	}
	logWrite(sb.String())
}

// LogAIResponse logs an AI response with the given operation name.
func LogAIResponse(operation string, response string, err error) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	errStr := "(none)"
	if err != nil {
		errStr = err.Error()
	}
	entry := fmt.Sprintf(
		"[RESPONSE] %s  |  Op: %s\n"+
			"────────────────────────────────────────\n"+
			"Error: %s\n"+
			"────────────────────────────────────────\n"+
			"Response:\n%s\n"+
			"════════════════════════════════════════════════════════════════\n\n",
		ts, operation, errStr, response,
	)
	logWrite(entry)
}
