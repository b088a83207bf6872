package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// NDJSONSink appends one JSON line per record to a per-day output file.
type NDJSONSink struct {
	dir         string
	now         func() time.Time
	mu          sync.Mutex
	currentDate string
	file        *os.File
	writer      *bufio.Writer
}

func NewNDJSONSink(dir string) *NDJSONSink {
	return &NDJSONSink{
		dir: dir,
		now: time.Now,
	}
}

func (s *NDJSONSink) Emit(_ context.Context, record interface{}) error {
	if s == nil {
		return fmt.Errorf("sink: ndjson sink is nil")
	}
	if s.dir == "" {
		return fmt.Errorf("sink: directory is required")
	}

	payload, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dateKey := s.now().Format("20060102")
	if err := s.ensureWriter(dateKey); err != nil {
		return err
	}
	if _, err := s.writer.Write(append(payload, '\n')); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *NDJSONSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *NDJSONSink) closeLocked() error {
	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}
	s.writer = nil
	s.file = nil
	s.currentDate = ""
	return nil
}

func (s *NDJSONSink) ensureWriter(dateKey string) error {
	if s.writer != nil && s.currentDate == dateKey {
		return nil
	}
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("records-%s.ndjson", dateKey))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = file
	s.writer = bufio.NewWriterSize(file, 64*1024)
	s.currentDate = dateKey
	return nil
}
