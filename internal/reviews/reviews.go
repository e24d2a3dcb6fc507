// Package reviews picks canned review texts for the survey's free-text
// step, one corpus file per service category.
package reviews

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "surveybot/pkg/logx"
)

// Known service categories. These double as default corpus file names
// ("<category>.txt" under the configured directory).
const (
	CategoryKioskDineIn     = "borne_sur_place"
	CategoryKioskTakeaway   = "borne_emporter"
	CategoryCounterDineIn   = "comptoir_sur_place"
	CategoryCounterTakeaway = "comptoir_emporter"
	CategoryDrive           = "drive"
)

// fallbackCategory is used when the requested category has no corpus.
const fallbackCategory = CategoryDrive

// fallbackText is returned when no corpus can be read at all, so a run
// never fails on a missing review file.
const fallbackText = "Excellent service, très satisfait de ma visite !"

// Review is a selected canned review.
type Review struct {
	Category string
	Text     string
}

// Manager loads review corpora lazily and picks uniformly at random,
// avoiding an immediate repeat per category.
type Manager struct {
	dir   string
	files map[string]string // category -> file name override
	log   logx.Logger
	rng   *rand.Rand

	mu    sync.Mutex
	cache map[string][]string
	last  map[string]int // last picked index per category
}

type Option func(*Manager)

func WithLogger(l logx.Logger) Option { return func(m *Manager) { m.log = l } }
func WithRand(r *rand.Rand) Option    { return func(m *Manager) { m.rng = r } }

// New creates a manager reading corpora from dir. files optionally maps
// categories to file names (relative to dir); unlisted categories use
// "<category>.txt".
func New(dir string, files map[string]string, opts ...Option) *Manager {
	m := &Manager{
		dir:   dir,
		files: files,
		log:   logx.Nop(),
		cache: map[string][]string{},
		last:  map[string]int{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m
}

// Pick returns a review for the category, falling back to the drive
// corpus for unknown categories and to a canned default when nothing is
// readable. It never returns an empty text.
func (m *Manager) Pick(category string) Review {
	cat := strings.TrimSpace(category)
	if cat == "" {
		cat = fallbackCategory
	}

	text, err := m.pick(cat)
	if err != nil && cat != fallbackCategory {
		m.log.Warn("review corpus unavailable; falling back",
			logx.String("category", cat), logx.Err(err))
		cat = fallbackCategory
		text, err = m.pick(cat)
	}
	if err != nil {
		m.log.Error("no review corpus readable; using default text",
			logx.String("category", cat), logx.Err(err))
		return Review{Category: cat, Text: fallbackText}
	}
	m.log.Info("review selected",
		logx.String("category", cat),
		logx.String("preview", preview(text, 50)))
	return Review{Category: cat, Text: text}
}

func (m *Manager) pick(category string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.loadLocked(category)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("review corpus %q is empty", category)
	}
	if len(list) == 1 {
		m.last[category] = 0
		return list[0], nil
	}

	// Re-draw once on an immediate repeat.
	idx := m.rng.Intn(len(list))
	if prev, ok := m.last[category]; ok && idx == prev {
		idx = (idx + 1 + m.rng.Intn(len(list)-1)) % len(list)
	}
	m.last[category] = idx
	return list[idx], nil
}

func (m *Manager) loadLocked(category string) ([]string, error) {
	if list, ok := m.cache[category]; ok {
		return list, nil
	}

	name := category + ".txt"
	if override, ok := m.files[category]; ok && strings.TrimSpace(override) != "" {
		name = override
	}
	path := filepath.Join(m.dir, name)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open review corpus: %w", err)
	}
	defer f.Close()

	var list []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		list = append(list, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read review corpus: %w", err)
	}

	m.cache[category] = list
	return list, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
