// Package sources reads candidate feeds produced by crawlers and operators.
package sources

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/javajoker/scentdb-backend/internal/models"
)

// Feed is the decoded content of one candidate file. Source is set only when
// the file names its own catalog.
type Feed struct {
	Path       string
	Source     *models.SourceDescriptor
	Candidates []models.CandidateRecord
}

type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// feedDocument is the object form accepted by .json and .yaml files.
type feedDocument struct {
	Source     *models.SourceDescriptor `json:"source" yaml:"source"`
	Candidates []models.CandidateRecord `json:"candidates" yaml:"candidates"`
}

func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported candidate file %s: want .jsonl, .ndjson, .json, .yaml or .yml", path)
}

func ReadFile(path string) (*Feed, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	feed, err := Read(f, format, path)
	if err != nil {
		return nil, err
	}
	feed.Path = path
	return feed, nil
}

// Read decodes a feed; name is used only in error messages.
func Read(r io.Reader, format Format, name string) (*Feed, error) {
	switch format {
	case FormatJSONL:
		return readJSONL(r, name)
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return readJSON(data, name)
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return readYAML(data, name)
	}
	return nil, fmt.Errorf("unknown feed format %q", format)
}

func readJSONL(r io.Reader, name string) (*Feed, error) {
	feed := &Feed{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var c models.CandidateRecord
		if err := json.Unmarshal(text, &c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		feed.Candidates = append(feed.Candidates, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", name, line+1, err)
	}
	return feed, nil
}

func readJSON(data []byte, name string) (*Feed, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Feed{}, nil
	}

	feed := &Feed{}
	var items []json.RawMessage
	if trimmed[0] == '{' {
		var doc struct {
			Source     *models.SourceDescriptor `json:"source"`
			Candidates []json.RawMessage        `json:"candidates"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		feed.Source = doc.Source
		items = doc.Candidates
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	feed.Candidates = make([]models.CandidateRecord, 0, len(items))
	for i, raw := range items {
		var c models.CandidateRecord
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%s: candidate %d: %w", name, i, err)
		}
		feed.Candidates = append(feed.Candidates, c)
	}
	return feed, nil
}

func readYAML(data []byte, name string) (*Feed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Feed{}, nil
	}

	// Parse generically first; the top level may be a list or a document.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", name, err)
	}

	feed := &Feed{}
	var items []any
	switch v := raw.(type) {
	case nil:
		return feed, nil
	case []any:
		items = v
	case map[string]any:
		if src, ok := v["source"]; ok && src != nil {
			var desc models.SourceDescriptor
			if err := remarshalYAML(src, &desc); err != nil {
				return nil, fmt.Errorf("%s: source: %w", name, err)
			}
			feed.Source = &desc
		}
		list, ok := v["candidates"].([]any)
		if !ok && v["candidates"] != nil {
			return nil, fmt.Errorf("%s: candidates must be a list", name)
		}
		items = list
	default:
		return nil, fmt.Errorf("%s: expected a list of candidates or a {source, candidates} document", name)
	}

	feed.Candidates = make([]models.CandidateRecord, 0, len(items))
	for i, item := range items {
		var c models.CandidateRecord
		if err := remarshalYAML(item, &c); err != nil {
			return nil, fmt.Errorf("%s: candidate %d: %w", name, i, err)
		}
		feed.Candidates = append(feed.Candidates, c)
	}
	return feed, nil
}

func remarshalYAML(in any, out any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
