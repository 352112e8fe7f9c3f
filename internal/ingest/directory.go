// Package ingest discovers invoice files on disk and turns them into uploads.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/notas-reader/constants"
	svcingest "github.com/joseph-ayodele/notas-reader/internal/services/ingest"
)

type FileResult struct {
	Path    string
	ModTime time.Time
	Err     string
}

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// CollectDirectory walks root for PDF and image files, skipping hidden entries
// when asked. Matches are ordered by modification time, oldest first, so the
// newest file ends up as the store's latest document.
func CollectDirectory(root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Allowed(path) {
			return nil
		}
		stats.Matched++
		info, err := d.Info()
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{Path: path, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].ModTime.Before(results[j].ModTime) })
	return results, stats, nil
}

// ReadUpload loads one file as an upload keyed by its base name.
func ReadUpload(path string) (svcingest.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return svcingest.Upload{}, err
	}
	return svcingest.Upload{Filename: filepath.Base(path), Data: data}, nil
}

// Allowed reports whether path has a PDF or image extension.
func Allowed(path string) bool {
	return constants.IsAllowedExt(filepath.Ext(path))
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
