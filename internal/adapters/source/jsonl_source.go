package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"slices"
	"strconv"

	"github.com/mikey/llm-feed-filter/internal/core"
	"go.uber.org/zap"
)

// maxLineSize bounds a single feed record
const maxLineSize = 1 << 20

// JSONLinesSource reads candidate items from a file holding one JSON object
// per line. The file is re-read on every scan, so items seen before are
// yielded again.
type JSONLinesSource struct {
	path   string
	logger *zap.Logger
}

// NewJSONLinesSource creates a source reading path
func NewJSONLinesSource(path string, logger *zap.Logger) *JSONLinesSource {
	return &JSONLinesSource{
		path:   path,
		logger: logger,
	}
}

// Path returns the feed file path
func (s *JSONLinesSource) Path() string {
	return s.path
}

// Scan reads the current feed. A missing file is an empty feed; malformed
// lines are skipped. Items without a handle get one derived from their line.
func (s *JSONLinesSource) Scan(ctx context.Context) (iter.Seq[core.Item], error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("Feed file does not exist yet", zap.String("path", s.path))
			return slices.Values([]core.Item(nil)), nil
		}
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer f.Close()

	var items []core.Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var item core.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			s.logger.Warn("Skipping malformed feed line", zap.Int("line", line), zap.Error(err))
			continue
		}
		if item.Handle == "" {
			item.Handle = "line:" + strconv.Itoa(line)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	s.logger.Debug("Scanned feed", zap.String("path", s.path), zap.Int("items", len(items)))
	return slices.Values(items), nil
}
