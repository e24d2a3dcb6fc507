package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "surveybot/pkg/logx"
)

// keep at most this many records in memory for RecentRuns/CountRunsOn.
const fileTailCap = 1000

// fileStore is a dependency-free persistence backend: an append-only
// JSON Lines file plus an in-memory tail replayed at open.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	f    *os.File
	tail []RunRecord // oldest first
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	tail, err := replayTail(path)
	if err != nil {
		// Unreadable history is not fatal; start with an empty tail.
		log.Warn("run history unreadable; starting empty", logx.String("path", path), logx.Err(err))
		tail = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{log: log, f: f, tail: tail}, nil
}

func replayTail(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var tail []RunRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r RunRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue // skip torn lines
		}
		tail = append(tail, r)
		if len(tail) > fileTailCap {
			tail = tail[len(tail)-fileTailCap:]
		}
	}
	return tail, sc.Err()
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) AppendRun(ctx context.Context, r RunRecord) error {
	_ = ctx
	if r.At.IsZero() {
		r.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("run history closed")
	}
	if err := json.NewEncoder(s.f).Encode(r); err != nil {
		return err
	}
	s.tail = append(s.tail, r)
	if len(s.tail) > fileTailCap {
		s.tail = s.tail[len(s.tail)-fileTailCap:]
	}
	return nil
}

func (s *fileStore) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	_ = ctx
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.tail) {
		n = len(s.tail)
	}
	out := make([]RunRecord, 0, n)
	for i := len(s.tail) - 1; i >= len(s.tail)-n; i-- {
		out = append(out, s.tail[i])
	}
	return out, nil
}

func (s *fileStore) CountRunsOn(ctx context.Context, day time.Time) (int, error) {
	_ = ctx
	start, end := dayBounds(day)

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.tail {
		if !r.At.Before(start) && r.At.Before(end) {
			count++
		}
	}
	return count, nil
}
