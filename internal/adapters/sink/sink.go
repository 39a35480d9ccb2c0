package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/mikey/llm-feed-filter/internal/core"
	"go.uber.org/zap"
)

// LogSink records hide effects in the log only
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new log sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Hide implements core.EffectSink
func (s *LogSink) Hide(_ context.Context, item core.Item) {
	s.logger.Info("Hiding item",
		zap.String("handle", item.Handle),
		zap.String("url", item.URL),
		zap.String("author", item.Author))
}

// HiddenRecord is one line of the hidden items file
type HiddenRecord struct {
	Handle   string    `json:"handle"`
	URL      string    `json:"url,omitempty"`
	Author   string    `json:"author,omitempty"`
	HiddenAt time.Time `json:"hidden_at"`
}

// FileSink appends hidden items to a JSON lines file that a renderer can
// consult. Hiding a handle that is already in the file is a no-op.
type FileSink struct {
	mu     sync.Mutex
	path   string
	hidden map[string]struct{}
	logger *zap.Logger
	now    func() time.Time
}

// NewFileSink creates a file sink, loading the handles already hidden in path
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	s := &FileSink{
		path:   path,
		hidden: make(map[string]struct{}),
		logger: logger,
		now:    time.Now,
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to open hidden items file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec HiddenRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil || rec.Handle == "" {
			continue
		}
		s.hidden[rec.Handle] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hidden items file: %w", err)
	}

	return s, nil
}

// Hide implements core.EffectSink. Write failures are logged.
func (s *FileSink) Hide(_ context.Context, item core.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hidden[item.Handle]; ok {
		return
	}

	line, err := json.Marshal(HiddenRecord{
		Handle:   item.Handle,
		URL:      item.URL,
		Author:   item.Author,
		HiddenAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to encode hidden item", zap.Error(err))
		return
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Error("Failed to open hidden items file", zap.String("path", s.path), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		s.logger.Error("Failed to write hidden item", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.hidden[item.Handle] = struct{}{}
	s.logger.Info("Hid item", zap.String("handle", item.Handle), zap.String("url", item.URL))
}
