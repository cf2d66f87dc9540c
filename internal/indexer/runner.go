package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/clerk/internal/memory"
)

// Source selects what kind of files a run indexes.
type Source string

const (
	SourceLaw          Source = "law"
	SourceNegotiations Source = "negotiations"
)

// Collection returns the memory collection a source is indexed into.
func (s Source) Collection() string {
	if s == SourceNegotiations {
		return memory.CollectionNegotiations
	}
	return memory.CollectionLaw
}

func (s Source) ext() string {
	if s == SourceNegotiations {
		return ".json"
	}
	return ".jsonl"
}

// Appender stores fragments. *memory.Client satisfies it.
type Appender interface {
	Append(ctx context.Context, collection, id, text string, metadata map[string]any) error
}

type Config struct {
	Source Source
	// Dir is walked recursively. A path to a single file is accepted too.
	Dir       string
	StatePath string
	DryRun    bool
}

// Summary reports the outcome of a run.
type Summary struct {
	Source    Source
	Files     int
	Skipped   int
	Fragments int
	Errors    []string
}

// Runner loads law summaries or negotiation logs into memory. It records
// each finished file in a state file so a rerun skips work already done.
type Runner struct {
	cfg    Config
	mem    Appender
	logger *slog.Logger
}

func NewRunner(cfg Config, mem Appender, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, mem: mem, logger: logger}
}

// Run indexes every pending file. A file is marked processed only when all
// of its documents were appended; append failures leave it pending.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.cfg.Source != SourceLaw && r.cfg.Source != SourceNegotiations {
		return nil, fmt.Errorf("unknown source %q", r.cfg.Source)
	}

	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := discover(expandHome(r.cfg.Dir), r.cfg.Source.ext())
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("files discovered", "source", r.cfg.Source, "files", len(files))

	sum := &Summary{Source: r.cfg.Source}
	collection := r.cfg.Source.Collection()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			_ = state.Save()
			return sum, err
		}
		if state.IsProcessed(path) {
			sum.Skipped++
			continue
		}

		docs, parseErrs := r.parse(path)
		for _, e := range parseErrs {
			r.logger.Warn("skipping malformed entry", "path", path, "error", e)
			sum.Errors = append(sum.Errors, e.Error())
			state.AddError(e.Error())
		}

		ok := true
		for _, d := range docs {
			if r.cfg.DryRun {
				sum.Fragments++
				continue
			}
			if err := r.mem.Append(ctx, collection, d.ID, d.Text, d.Metadata); err != nil {
				msg := fmt.Sprintf("append %s from %s: %v", d.ID, filepath.Base(path), err)
				r.logger.Error("failed to index document", "path", path, "id", d.ID, "error", err)
				sum.Errors = append(sum.Errors, msg)
				state.AddError(msg)
				ok = false
				continue
			}
			sum.Fragments++
			state.Fragments++
		}

		sum.Files++
		if ok && !r.cfg.DryRun {
			state.MarkProcessed(path)
			if err := state.Save(); err != nil {
				r.logger.Warn("failed to save index state", "path", state.Path(), "error", err)
			}
		}
		r.logger.Info("file indexed", "path", path, "documents", len(docs))
	}

	if !r.cfg.DryRun {
		if err := state.Save(); err != nil {
			return sum, fmt.Errorf("save state: %w", err)
		}
	}

	r.logger.Info("indexing complete",
		"source", r.cfg.Source,
		"files", sum.Files,
		"skipped", sum.Skipped,
		"fragments", sum.Fragments,
		"errors", len(sum.Errors),
		"dry_run", r.cfg.DryRun,
	)
	return sum, nil
}

func (r *Runner) parse(path string) ([]Document, []error) {
	if r.cfg.Source == SourceNegotiations {
		doc, err := ParseNegotiationFile(path)
		if err != nil {
			return nil, []error{err}
		}
		return []Document{doc}, nil
	}

	docs, lineErrs, err := ParseLawFile(path)
	if err != nil {
		lineErrs = append(lineErrs, err)
	}
	return docs, lineErrs
}

// discover lists files under root with the given extension, sorted.
func discover(root, ext string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FormatSummary renders a run summary for the terminal.
func FormatSummary(s *Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Indexed %s into %s\n", s.Source, s.Source.Collection())
	fmt.Fprintf(&sb, "Files processed: %d\n", s.Files)
	fmt.Fprintf(&sb, "Files skipped (already indexed): %d\n", s.Skipped)
	fmt.Fprintf(&sb, "Fragments: %d\n", s.Fragments)
	fmt.Fprintf(&sb, "Errors: %d\n", len(s.Errors))
	return sb.String()
}
