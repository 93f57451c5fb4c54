// Package pathutil provides path management for the Beancount journal archive.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// YearMonthLayout is the layout of a monthly archive file key.
const YearMonthLayout = "2006-01"

// PathResolver maps archive keys onto files under a root directory.
//
// Layout:
//
//	{root}/2024/2024-07.beancount
type PathResolver struct {
	root string
}

// New creates a new PathResolver rooted at root.
func New(root string) *PathResolver {
	return &PathResolver{root: root}
}

// Root returns the archive root directory.
func (p *PathResolver) Root() string {
	return p.root
}

// YearDir returns the directory path for a year.
func (p *PathResolver) YearDir(year string) string {
	return filepath.Join(p.root, year)
}

// MonthFilePath returns the file path for a YYYY-MM key.
func (p *PathResolver) MonthFilePath(yearMonth string) (string, error) {
	t, err := time.Parse(YearMonthLayout, yearMonth)
	if err != nil || t.Format(YearMonthLayout) != yearMonth {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	return filepath.Join(p.YearDir(yearMonth[:4]), yearMonth+".beancount"), nil
}

// MonthFilePathFor returns the file path of the month containing date.
func (p *PathResolver) MonthFilePathFor(date time.Time) string {
	key := date.Format(YearMonthLayout)
	return filepath.Join(p.YearDir(key[:4]), key+".beancount")
}

// EnsureParentDir creates the parent directory of a file (like mkdir -p).
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
