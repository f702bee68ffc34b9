package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/loader"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/store"
	"github.com/OFFIS-RIT/sciradar/pkg/window"

	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/sync/singleflight"
)

const maxLineSize = 16 << 20

// FileLoader reads harvested records from a JSON-lines document (or a
// single JSON array). The document is fetched and parsed once and kept in
// memory.
type FileLoader struct {
	name  string
	fetch func(ctx context.Context) ([]byte, error)

	mu      sync.RWMutex
	records []loader.Record
	group   singleflight.Group
}

// NewFileLoader reads the document at path on the local filesystem.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{
		name: path,
		fetch: func(ctx context.Context) ([]byte, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			return data, nil
		},
	}
}

// NewBlobLoader reads the document stored under key, e.g. a dataset export
// uploaded to S3.
func NewBlobLoader(blobs store.BlobStore, key string) *FileLoader {
	return &FileLoader{
		name: key,
		fetch: func(ctx context.Context) ([]byte, error) {
			data, err := blobs.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch dataset %s: %w", key, err)
			}
			return data, nil
		},
	}
}

func (l *FileLoader) all(ctx context.Context) ([]loader.Record, error) {
	l.mu.RLock()
	if l.records != nil {
		defer l.mu.RUnlock()
		return l.records, nil
	}
	l.mu.RUnlock()

	result, err, _ := l.group.Do(l.name, func() (any, error) {
		l.mu.RLock()
		if l.records != nil {
			defer l.mu.RUnlock()
			return l.records, nil
		}
		l.mu.RUnlock()

		data, err := l.fetch(ctx)
		if err != nil {
			return nil, err
		}
		records, err := Parse(data)
		if err != nil {
			return nil, err
		}
		logger.Info("[Loader] Parsed records", "source", l.name, "count", len(records))

		l.mu.Lock()
		l.records = records
		l.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]loader.Record), nil
}

func (l *FileLoader) inRange(ctx context.Context, r window.Range) ([]loader.Record, error) {
	records, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	selected, undated := loader.SelectRange(records, r)
	if len(undated) > 0 {
		logger.Debug("[Loader] Skipping records without a usable date", "count", len(undated))
	}
	return selected, nil
}

func (l *FileLoader) LoadPublications(ctx context.Context, r window.Range) ([]common.Publication, error) {
	records, err := l.inRange(ctx, r)
	if err != nil {
		return nil, err
	}
	return loader.Publications(records), nil
}

func (l *FileLoader) LoadDescriptors(ctx context.Context, r window.Range) (map[string]common.Descriptor, error) {
	records, err := l.inRange(ctx, r)
	if err != nil {
		return nil, err
	}
	return loader.AggregateDescriptors(records), nil
}

// Parse decodes either a JSON array of records or one record per line.
// Lines that are not valid JSON are repaired when possible and skipped
// otherwise.
func Parse(data []byte) ([]loader.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []loader.Record{}, nil
	}
	if trimmed[0] == '[' {
		var records []loader.Record
		if err := unmarshalFlexible(string(trimmed), &records); err != nil {
			return nil, fmt.Errorf("failed to parse record array: %w", err)
		}
		return records, nil
	}

	records := []loader.Record{}
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec loader.Record
		if err := unmarshalFlexible(text, &rec); err != nil {
			logger.Warn("[Loader] Skipping unreadable record", "line", line, "err", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

func unmarshalFlexible(input string, out any) error {
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}
