package indexer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one fragment ready to be appended to memory.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

type lawRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SectionNo any    `json:"section_no"`
	Summary   string `json:"summary"`
}

// ParseLawFile reads a JSONL file of statute summaries. Malformed lines are
// returned as errors alongside the documents that did parse.
func ParseLawFile(path string) ([]Document, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var docs []Document
	var lineErrs []error

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row lawRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			lineErrs = append(lineErrs, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err))
			continue
		}
		if row.ID == "" || strings.TrimSpace(row.Summary) == "" {
			lineErrs = append(lineErrs, fmt.Errorf("%s:%d: id and summary are required", filepath.Base(path), lineNo))
			continue
		}

		meta := map[string]any{"title": row.Title}
		if row.SectionNo != nil {
			meta["section"] = fmt.Sprint(row.SectionNo)
		}
		docs = append(docs, Document{ID: row.ID, Text: row.Summary, Metadata: meta})
	}
	if err := scanner.Err(); err != nil {
		return docs, lineErrs, fmt.Errorf("scan %s: %w", path, err)
	}
	return docs, lineErrs, nil
}

type negotiationLog struct {
	Scenario   string            `json:"scenario"`
	Dialogue   []json.RawMessage `json:"negotiation_dialogue"`
	Resolution string            `json:"mediator_resolution_summary"`
	FinalText  string            `json:"proposed_revised_clause"`
}

// ParseNegotiationFile reads one JSON negotiation log. The document id is
// derived from the file name so re-indexing replaces rather than duplicates.
func ParseNegotiationFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	var nl negotiationLog
	if err := json.Unmarshal(data, &nl); err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(nl.Scenario) == "" {
		return Document{}, fmt.Errorf("parse %s: scenario is required", path)
	}

	lines := make([]string, 0, len(nl.Dialogue))
	for _, raw := range nl.Dialogue {
		if s := dialogueLine(raw); s != "" {
			lines = append(lines, s)
		}
	}

	text := fmt.Sprintf("SCENARIO: %s\nDIALOGUE: %s\nOUTCOME: %s\nFINAL_CLAUSE: %s",
		nl.Scenario, strings.Join(lines, " "), nl.Resolution, nl.FinalText)

	name := filepath.Base(path)
	return Document{
		ID:       "negotiation:" + strings.TrimSuffix(name, filepath.Ext(name)),
		Text:     text,
		Metadata: map[string]any{"file": name},
	}, nil
}

// dialogueLine accepts either a plain string or a {party, text} object.
func dialogueLine(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var turn struct {
		Party   string `json:"party"`
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(raw, &turn); err != nil {
		return ""
	}
	who := turn.Party
	if who == "" {
		who = turn.Speaker
	}
	if who == "" {
		return strings.TrimSpace(turn.Text)
	}
	return who + ": " + strings.TrimSpace(turn.Text)
}
