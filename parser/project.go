package parser

import (
	"os"
	"path/filepath"
	"strings"
)

// EncodeProjectDir returns the directory name Claude Code uses under
// ~/.claude/projects for a working directory: path separators become "-".
func EncodeProjectDir(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "/", "-")
}

// DecodeProjectDir reverses EncodeProjectDir by turning every "-" back into
// a path separator. The encoding is lossy (a literal "-" in the original
// path decodes as a separator), so callers prefer a recorded cwd when one
// exists.
func DecodeProjectDir(encoded string) string {
	return strings.ReplaceAll(encoded, "-", "/")
}

// SourceProject returns the first path segment of filePath below root, i.e.
// the encoded project directory a log file lives in. Returns "" when
// filePath is not under root.
func SourceProject(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first
}

// ProjectName returns a display name for a project path.
//
// If the path is inside a git repository (including worktrees and
// submodules), resolves to the main repository root directory name.
// Falls back to filepath.Base of the path.
func ProjectName(projectPath string) string {
	if projectPath == "" {
		return ""
	}
	cleaned := filepath.Clean(projectPath)
	if root := findGitRepoRoot(cleaned); root != "" {
		return filepath.Base(root)
	}
	return filepath.Base(cleaned)
}

// findGitRepoRoot walks up from dir looking for .git. A .git directory marks
// a normal repository root; a .git file (worktree or submodule) is followed
// to the main repository. Returns "" if nothing is found.
func findGitRepoRoot(dir string) string {
	current := dir
	if info, err := os.Stat(current); err != nil || !info.IsDir() {
		// Decoded project paths often no longer exist. Don't walk a bare name.
		if !strings.ContainsRune(current, filepath.Separator) {
			return ""
		}
		current = filepath.Dir(current)
	}

	for {
		gitPath := filepath.Join(current, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return current
			}
			if info.Mode().IsRegular() {
				if root := repoRootFromGitFile(gitPath); root != "" {
					return root
				}
				return current
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// repoRootFromGitFile resolves the main repository root from a .git file:
// read the gitdir reference, then prefer its commondir, then fall back to
// the .git/worktrees/<name> layout.
func repoRootFromGitFile(gitFilePath string) string {
	gitDir := readPrefixedLine(gitFilePath, "gitdir:")
	if gitDir == "" {
		return ""
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Clean(filepath.Join(filepath.Dir(gitFilePath), gitDir))
	}

	if b, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		common := strings.TrimSpace(string(b))
		if common != "" {
			if !filepath.IsAbs(common) {
				common = filepath.Join(gitDir, common)
			}
			common = filepath.Clean(common)
			if filepath.Base(common) == ".git" {
				return filepath.Dir(common)
			}
		}
	}

	marker := string(filepath.Separator) + ".git" +
		string(filepath.Separator) + "worktrees" +
		string(filepath.Separator)
	if root, _, found := strings.Cut(gitDir, marker); found && root != "" {
		return filepath.Clean(root)
	}
	return ""
}

// readPrefixedLine returns the trimmed remainder of the first line in path
// that starts with prefix (case-insensitive).
func readPrefixedLine(path, prefix string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}
