package ticket

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Documents abstracts the ticket PDF directories. Incoming documents sit in
// an inbox; after an import attempt each one is routed to the processed
// directory or, when it could not be interpreted, to the error directory for
// manual review.
type Documents interface {
	// Read returns the raw bytes of a document
	Read(path string) ([]byte, error)

	// ListInbox returns the paths of pending PDF documents, sorted by name
	ListInbox() ([]string, error)

	// MoveToProcessed files a successfully imported document
	MoveToProcessed(path string) error

	// MoveToError files a document that could not be interpreted
	MoveToError(path string) error
}

// LocalDocuments implements Documents on the local filesystem.
type LocalDocuments struct {
	inbox     string
	processed string
	errored   string
}

// NewLocalDocuments creates a LocalDocuments instance, creating the inbox
// directory if it does not exist. The outcome directories are created on
// first move.
func NewLocalDocuments(inbox, processed, errored string) (*LocalDocuments, error) {
	if err := os.MkdirAll(inbox, 0755); err != nil {
		return nil, fmt.Errorf("creating inbox directory: %w", err)
	}
	return &LocalDocuments{
		inbox:     inbox,
		processed: processed,
		errored:   errored,
	}, nil
}

// Read returns the raw bytes of a document
func (l *LocalDocuments) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return data, nil
}

// ListInbox returns the paths of pending PDF documents, sorted by name
func (l *LocalDocuments) ListInbox() ([]string, error) {
	entries, err := os.ReadDir(l.inbox)
	if err != nil {
		return nil, fmt.Errorf("reading inbox: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(l.inbox, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// MoveToProcessed files a successfully imported document
func (l *LocalDocuments) MoveToProcessed(path string) error {
	return move(path, l.processed)
}

// MoveToError files a document that could not be interpreted
func (l *LocalDocuments) MoveToError(path string) error {
	return move(path, l.errored)
}

func move(path, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("moving document: %w", err)
	}
	return nil
}
