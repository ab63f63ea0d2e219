package eventlog

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends connection events to a CBOR stream on disk. Safe
// for concurrent use; encoding errors never disrupt the connection
// path.
type FileLogger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// NewFileLogger opens the event log at path for appending, creating it
// if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		path:    path,
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Path returns the file the logger writes to.
func (l *FileLogger) Path() string {
	return l.path
}

// Log appends one event. Events logged after Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	_ = l.encoder.Encode(event)
}

// Close closes the log file. Safe to call more than once.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
