package beancount

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pigeonworks-llc/pos-journal-sync/pkg/pathutil"
)

// Repository defines the archive file operations.
type Repository interface {
	// AppendTransaction appends a transaction to the monthly file of its date.
	AppendTransaction(txn Transaction, comment ...string) (string, error)

	// ReadMonthFile reads the content of a monthly file.
	ReadMonthFile(yearMonth string) (string, error)

	// EnsureMonthFile ensures a monthly file exists with header.
	EnsureMonthFile(yearMonth string) (string, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
	now          func() time.Time

	mu sync.Mutex
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
		now:          time.Now,
	}
}

// AppendTransaction appends a transaction to its monthly file, creating the
// file if it doesn't exist. It returns the file path.
func (r *FileSystemRepository) AppendTransaction(txn Transaction, comment ...string) (string, error) {
	if len(txn.Date) < len("2006-01") {
		return "", fmt.Errorf("invalid transaction date: %q", txn.Date)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	filePath, err := r.ensureMonthFile(txn.Date[:7])
	if err != nil {
		return "", err
	}

	var content string
	if len(comment) > 0 && comment[0] != "" {
		content += fmt.Sprintf("; %s\n", comment[0])
	}
	content += Format(txn)
	content += "\n"

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("failed to write to file: %w", err)
	}

	return filePath, nil
}

// ReadMonthFile reads the content of a monthly file.
// Returns empty string if file doesn't exist.
func (r *FileSystemRepository) ReadMonthFile(yearMonth string) (string, error) {
	filePath, err := r.pathResolver.MonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}

	if !r.pathResolver.FileExists(filePath) {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return string(data), nil
}

// EnsureMonthFile ensures a monthly file exists with header.
// If the file already exists, this is a no-op.
func (r *FileSystemRepository) EnsureMonthFile(yearMonth string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureMonthFile(yearMonth)
}

func (r *FileSystemRepository) ensureMonthFile(yearMonth string) (string, error) {
	filePath, err := r.pathResolver.MonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}

	if r.pathResolver.FileExists(filePath) {
		return filePath, nil
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return "", fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	header := fmt.Sprintf("; POS journals for %s\n; Generated at %s\n\n", yearMonth, r.now().Format(time.RFC3339))
	if err := os.WriteFile(filePath, []byte(header), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}
