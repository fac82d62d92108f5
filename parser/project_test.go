package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProjectDirCodec(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		encoded string
	}{
		{"plain path", "/Users/kyle/Code/proj", "-Users-kyle-Code-proj"},
		{"root", "/", "-"},
		{"relative", "a/b", "a-b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeProjectDir(tt.path); got != tt.encoded {
				t.Errorf("EncodeProjectDir(%q) = %q, want %q", tt.path, got, tt.encoded)
			}
			if got := DecodeProjectDir(tt.encoded); got != tt.path {
				t.Errorf("DecodeProjectDir(%q) = %q, want %q", tt.encoded, got, tt.path)
			}
		})
	}
}

func TestDecodeProjectDirIsLossy(t *testing.T) {
	// A literal dash in the original path cannot be told apart from a separator.
	if got := DecodeProjectDir(EncodeProjectDir("/work/my-app")); got != "/work/my/app" {
		t.Errorf("got %q, want %q", got, "/work/my/app")
	}
}

func TestSourceProject(t *testing.T) {
	root := filepath.Join("/home", "u", ".claude", "projects")
	tests := []struct {
		name string
		path string
		want string
	}{
		{"session file", filepath.Join(root, "-Users-kyle-proj", "abc.jsonl"), "-Users-kyle-proj"},
		{"nested file", filepath.Join(root, "proj-a", "sub", "agent.jsonl"), "proj-a"},
		{"outside root", filepath.Join("/tmp", "x.jsonl"), ""},
		{"root itself", root, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceProject(root, tt.path); got != tt.want {
				t.Errorf("SourceProject(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestProjectName(t *testing.T) {
	t.Run("normal git repo returns repo dir name", func(t *testing.T) {
		root := t.TempDir()
		repo := filepath.Join(root, "my-project")
		subdir := filepath.Join(repo, "internal", "pkg")

		mustMkdirAll(t, filepath.Join(repo, ".git"))
		mustMkdirAll(t, subdir)

		if got := ProjectName(subdir); got != "my-project" {
			t.Fatalf("ProjectName(%q) = %q, want %q", subdir, got, "my-project")
		}
	})

	t.Run("worktree resolves to main repo name via commondir", func(t *testing.T) {
		root := t.TempDir()
		mainRepo := filepath.Join(root, "claude-history")
		worktree := filepath.Join(root, "claude-history-feature-x")
		worktreeGitDir := filepath.Join(mainRepo, ".git", "worktrees", "feature-x")

		mustMkdirAll(t, filepath.Join(mainRepo, ".git"))
		mustMkdirAll(t, worktreeGitDir)
		mustMkdirAll(t, worktree)

		mustWriteFile(t, filepath.Join(worktree, ".git"), "gitdir: "+worktreeGitDir+"\n")
		mustWriteFile(t, filepath.Join(worktreeGitDir, "commondir"), "../..\n")

		if got := ProjectName(worktree); got != "claude-history" {
			t.Fatalf("ProjectName(%q) = %q, want %q", worktree, got, "claude-history")
		}
	})

	t.Run("worktree fallback without commondir", func(t *testing.T) {
		root := t.TempDir()
		mainRepo := filepath.Join(root, "my-repo")
		worktree := filepath.Join(root, "my-repo-experiment")
		worktreeGitDir := filepath.Join(mainRepo, ".git", "worktrees", "exp")

		mustMkdirAll(t, filepath.Join(mainRepo, ".git"))
		mustMkdirAll(t, worktreeGitDir)
		mustMkdirAll(t, worktree)
		mustWriteFile(t, filepath.Join(worktree, ".git"), "gitdir: "+worktreeGitDir+"\n")

		if got := ProjectName(worktree); got != "my-repo" {
			t.Fatalf("ProjectName(%q) = %q, want %q", worktree, got, "my-repo")
		}
	})

	t.Run("missing path falls back to base name", func(t *testing.T) {
		got := ProjectName(filepath.Join(t.TempDir(), "gone", "away"))
		if got != "away" {
			t.Fatalf("ProjectName = %q, want %q", got, "away")
		}
	})

	t.Run("empty path returns empty string", func(t *testing.T) {
		if got := ProjectName(""); got != "" {
			t.Fatalf("ProjectName(%q) = %q, want empty", "", got)
		}
	})
}

func TestFindGitRepoRoot(t *testing.T) {
	t.Run("normal repo from subdir", func(t *testing.T) {
		root := t.TempDir()
		repo := filepath.Join(root, "myrepo")
		sub := filepath.Join(repo, "a", "b")

		mustMkdirAll(t, filepath.Join(repo, ".git"))
		mustMkdirAll(t, sub)

		if got := findGitRepoRoot(sub); got != repo {
			t.Fatalf("findGitRepoRoot(%q) = %q, want %q", sub, got, repo)
		}
	})

	t.Run("no .git returns empty", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "no-git")
		mustMkdirAll(t, dir)

		if got := findGitRepoRoot(dir); got != "" {
			t.Fatalf("findGitRepoRoot(%q) = %q, want empty", dir, got)
		}
	})

	t.Run("empty string returns empty", func(t *testing.T) {
		if got := findGitRepoRoot(""); got != "" {
			t.Fatalf("findGitRepoRoot(%q) = %q, want empty", "", got)
		}
	})
}

// mustMkdirAll and mustWriteFile are test helpers.
func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
}
