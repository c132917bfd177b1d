package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"discord-modbot/model"

	"go.uber.org/zap"
)

// jsonDocument is a JSON file read and rewritten wholesale. The mutex serializes
// read-modify-write cycles inside the process.
type jsonDocument[T any] struct {
	mu         sync.Mutex
	path       string
	newDefault func() T
	logger     *zap.Logger
}

// load reads the document. A missing or empty file is created with the default and a
// file that fails to parse is reset to it.
func (d *jsonDocument[T]) load() (T, error) {
	data, err := os.ReadFile(d.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		var zero T
		return zero, fmt.Errorf("failed to read %s: %w", d.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		doc := d.newDefault()
		if err := d.save(doc); err != nil {
			return doc, err
		}
		return doc, nil
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		d.logger.Warn("Corrupted document, resetting to default",
			zap.String("path", d.path),
			zap.Error(err))
		doc = d.newDefault()
		if err := d.save(doc); err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// save writes the document through a temporary file and a rename.
func (d *jsonDocument[T]) save(doc T) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", d.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", d.path, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", d.path, err)
	}
	return nil
}

// JSONActionLog stores the action log as {"actions": [...]}.
type JSONActionLog struct {
	doc *jsonDocument[model.ActionLogDocument]
}

func NewJSONActionLog(path string, logger *zap.Logger) *JSONActionLog {
	return &JSONActionLog{doc: &jsonDocument[model.ActionLogDocument]{
		path:       path,
		newDefault: func() model.ActionLogDocument { return model.ActionLogDocument{Actions: []model.ActionLogEntry{}} },
		logger:     logger.Named("actions"),
	}}
}

func (l *JSONActionLog) Append(entry model.ActionLogEntry) error {
	l.doc.mu.Lock()
	defer l.doc.mu.Unlock()

	doc, err := l.doc.load()
	if err != nil {
		return err
	}
	entry.Timestamp = entry.Timestamp.UTC()
	doc.Actions = append(doc.Actions, entry)
	return l.doc.save(doc)
}

func (l *JSONActionLog) Entries() ([]model.ActionLogEntry, error) {
	l.doc.mu.Lock()
	defer l.doc.mu.Unlock()

	doc, err := l.doc.load()
	if err != nil {
		return nil, err
	}
	return doc.Actions, nil
}

// JSONWarnStore stores warnings as {"<user-id>": [...]}.
type JSONWarnStore struct {
	doc *jsonDocument[model.WarnDocument]
}

func NewJSONWarnStore(path string, logger *zap.Logger) *JSONWarnStore {
	return &JSONWarnStore{doc: &jsonDocument[model.WarnDocument]{
		path:       path,
		newDefault: func() model.WarnDocument { return model.WarnDocument{} },
		logger:     logger.Named("warns"),
	}}
}

func (s *JSONWarnStore) loadDoc() (model.WarnDocument, error) {
	doc, err := s.doc.load()
	if doc == nil {
		doc = model.WarnDocument{}
	}
	return doc, err
}

func (s *JSONWarnStore) Add(userID string, record model.WarnRecord) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	doc, err := s.loadDoc()
	if err != nil {
		return 0, err
	}
	record.Timestamp = record.Timestamp.UTC()
	doc[userID] = append(doc[userID], record)
	if err := s.doc.save(doc); err != nil {
		return 0, err
	}
	return len(doc[userID]), nil
}

// Reset keeps the user's key with an empty list.
func (s *JSONWarnStore) Reset(userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	doc, err := s.loadDoc()
	if err != nil {
		return err
	}
	doc[userID] = []model.WarnRecord{}
	return s.doc.save(doc)
}

func (s *JSONWarnStore) Count(userID string) (int, error) {
	records, err := s.List(userID)
	return len(records), err
}

func (s *JSONWarnStore) List(userID string) ([]model.WarnRecord, error) {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	doc, err := s.loadDoc()
	if err != nil {
		return nil, err
	}
	return doc[userID], nil
}
