package parser

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogExt is the extension of Claude Code session logs.
const LogExt = ".jsonl"

// StalenessMap maps an absolute log file path to its modification time in
// Unix milliseconds. It is a snapshot: recomputed on every read, never cached.
type StalenessMap map[string]int64

// ScanModTimes walks root/<project>/*.jsonl and records each file's
// modification time.
//
// A missing root or project directory contributes zero files. Entries at the
// project level that are not directories are ignored, and a file that
// vanishes between listing and stat is skipped with a warning.
func ScanModTimes(root string, logger *slog.Logger) StalenessMap {
	logger = orDiscard(logger)
	mods := make(StalenessMap)

	projects, err := readDir(root)
	if err != nil {
		logger.Error("failed to list projects directory", "path", root, "error", err)
		return mods
	}

	for _, project := range projects {
		projectPath := filepath.Join(root, project.Name())
		info, err := os.Stat(projectPath)
		if err != nil {
			logger.Warn("failed to stat project directory", "path", projectPath, "error", err)
			continue
		}
		if !info.IsDir() {
			continue
		}

		files, err := readDir(projectPath)
		if err != nil {
			logger.Warn("failed to list project directory", "path", projectPath, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), LogExt) {
				continue
			}
			filePath := filepath.Join(projectPath, f.Name())
			fi, err := os.Stat(filePath)
			if err != nil {
				logger.Warn("failed to stat file", "path", filePath, "error", err)
				continue
			}
			mods[filePath] = fi.ModTime().UnixMilli()
		}
	}

	logger.Debug("file modification times collected", "files", len(mods), "projects", len(projects))
	return mods
}

// readDir lists a directory, treating a missing one as empty.
func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}
