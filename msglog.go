package rfdecode

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// MessageLog appends decoded messages to a file as JSON lines, optionally
// zstd-compressed.
type MessageLog struct {
	mu      sync.Mutex
	file    *os.File
	zstdEnc *zstd.Encoder
	out     io.Writer
	enc     *json.Encoder
}

// NewMessageLog opens (or creates) the log file for appending. A compressed
// log is written as one zstd stream; it must be finalized with Close.
func NewMessageLog(path string, compress bool) (*MessageLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open message log: %w", err)
	}

	l := &MessageLog{file: file, out: file}
	if compress {
		enc, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		l.zstdEnc = enc
		l.out = enc
	}
	l.enc = json.NewEncoder(l.out)
	return l, nil
}

// Write appends one message.
func (l *MessageLog) Write(msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(msg)
}

// Close flushes and closes the log.
func (l *MessageLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.zstdEnc != nil {
		if err := l.zstdEnc.Close(); err != nil {
			l.file.Close()
			return err
		}
	}
	return l.file.Close()
}
