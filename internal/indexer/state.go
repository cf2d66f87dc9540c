package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStatePath is used when no state path is configured.
const DefaultStatePath = "~/.clerk/index-state.json"

// State tracks which source files have been indexed so an interrupted run
// can resume where it stopped.
type State struct {
	StartedAt      time.Time `json:"started_at"`
	LastIndexedAt  time.Time `json:"last_indexed_at"`
	FilesProcessed []string  `json:"files_processed"`
	Fragments      int       `json:"fragments"`
	Errors         []string  `json:"errors"`

	path string
	seen map[string]bool
}

// LoadState reads the state file at path, or starts a new state if the
// file does not exist.
func LoadState(path string) (*State, error) {
	if path == "" {
		path = DefaultStatePath
	}
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{StartedAt: time.Now().UTC(), path: p, seen: map[string]bool{}}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = p
	s.seen = make(map[string]bool, len(s.FilesProcessed))
	for _, f := range s.FilesProcessed {
		s.seen[f] = true
	}
	return &s, nil
}

// Path returns the expanded location of the state file.
func (s *State) Path() string { return s.path }

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastIndexedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

func (s *State) IsProcessed(path string) bool {
	return s.seen[path]
}

func (s *State) MarkProcessed(path string) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[path] {
		return
	}
	s.seen[path] = true
	s.FilesProcessed = append(s.FilesProcessed, path)
}

func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
