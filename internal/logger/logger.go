// Package logger writes JSON-lines records: one object per line carrying ts,
// level, msg and the caller's fields.
package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu     sync.Mutex
	logger *log.Logger
	debug  bool
	closer io.Closer
)

// Init opens (appending) <baseDir>/<fileName>, creating the directory.
func Init(baseDir, fileName string) error {
	if fileName == "" {
		fileName = "app.log"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(baseDir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	SetOutput(f)
	mu.Lock()
	closer = f
	mu.Unlock()
	return nil
}

// SetOutput sends records to w. A nil writer discards them.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	if w == nil {
		w = io.Discard
	}
	logger = log.New(w, "", 0)
}

func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

func DebugEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return debug
}

func Debug(msg string, fields map[string]any) {
	if !DebugEnabled() {
		return
	}
	write("debug", msg, fields)
}

func Info(msg string, fields map[string]any) {
	write("info", msg, fields)
}

func Warn(msg string, fields map[string]any) {
	write("warn", msg, fields)
}

func Error(msg string, fields map[string]any) {
	write("error", msg, fields)
}

// With returns a copy of base extended with extra; neither map is modified.
func With(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func write(level, msg string, fields map[string]any) {
	record := With(fields, map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	})
	enc, err := json.Marshal(record)

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err != nil {
		logger.Printf(`{"ts":"%s","level":"error","msg":"log_marshal_failed","error":%q}`, time.Now().UTC().Format(time.RFC3339Nano), err.Error())
		return
	}
	logger.Println(string(enc))
}
