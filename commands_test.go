package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kylesnowschwartz/claude-history/history"
)

const (
	cliUser      = `{"type":"user","uuid":"u1","parentUuid":null,"sessionId":"s1","timestamp":"2025-03-01T09:00:00.000Z","cwd":"/home/me/api","message":{"role":"user","content":"Add retries to the client"}}`
	cliAssistant = `{"type":"assistant","uuid":"a1","parentUuid":"u1","sessionId":"s1","timestamp":"2025-03-01T09:00:04.000Z","message":{"role":"assistant","model":"claude-opus-4-6","content":[{"type":"text","text":"Done."},{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/home/me/api/client.go","old_string":"a","new_string":"a\nb"}}]},"durationMs":4000}`
	cliOther     = `{"type":"user","uuid":"x1","parentUuid":null,"sessionId":"s2","timestamp":"2025-03-02T09:00:00.000Z","cwd":"/home/me/web","message":{"role":"user","content":"Fix the navbar"}}`
)

// testCLI runs commands against a throwaway Claude home and database.
type testCLI struct {
	home string
	db   string
}

func newTestCLI(t *testing.T) testCLI {
	t.Helper()
	home := t.TempDir()
	for project, lines := range map[string][]string{
		"-home-me-api/s1.jsonl": {cliUser, cliAssistant},
		"-home-me-web/s2.jsonl": {cliOther},
	} {
		path := filepath.Join(home, "projects", project)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return testCLI{home: home, db: filepath.Join(t.TempDir(), "sessions.db")}
}

func (c testCLI) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(string) string { return "" })
	defer cmd.close()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--claude-dir", c.home, "--db", c.db, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c testCLI) listJSON(t *testing.T, args ...string) history.ListResult {
	t.Helper()
	out, err := c.run(t, append([]string{"list", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var res history.ListResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding list output: %v\n%s", err, out)
	}
	return res
}

func TestCLI_ListJSON(t *testing.T) {
	cli := newTestCLI(t)
	res := cli.listJSON(t)
	if res.Total != 2 || len(res.Conversations) != 2 {
		t.Fatalf("result = %+v, want 2 conversations", res)
	}
	// Default order is newest update first.
	if res.Conversations[0].SessionID != "s2" {
		t.Errorf("first = %q, want s2", res.Conversations[0].SessionID)
	}
	s1 := res.Conversations[1]
	if s1.Summary != "Add retries to the client" || s1.Model != "claude-opus-4-6" {
		t.Errorf("s1 = %+v", s1)
	}
	if s1.ToolMetrics == nil || s1.ToolMetrics.EditCount != 1 || s1.ToolMetrics.LinesAdded != 2 || s1.ToolMetrics.LinesRemoved != 1 {
		t.Errorf("tool metrics = %+v", s1.ToolMetrics)
	}
}

func TestCLI_ListFiltersAndPaging(t *testing.T) {
	cli := newTestCLI(t)

	res := cli.listJSON(t, "--project", "/home/me/api")
	if res.Total != 1 || res.Conversations[0].SessionID != "s1" {
		t.Errorf("--project: %+v", res)
	}

	res = cli.listJSON(t, "--sort", "created", "--order", "asc", "--limit", "1")
	if res.Total != 2 || len(res.Conversations) != 1 || res.Conversations[0].SessionID != "s1" {
		t.Errorf("paged: %+v", res)
	}

	res = cli.listJSON(t, "--offset", "5")
	if res.Total != 2 || len(res.Conversations) != 0 {
		t.Errorf("offset past end: %+v", res)
	}
}

func TestCLI_ListRejectsBadFlags(t *testing.T) {
	cli := newTestCLI(t)
	for _, args := range [][]string{
		{"list", "--sort", "size"},
		{"list", "--order", "sideways"},
		{"list", "--limit", "-1"},
	} {
		if _, err := cli.run(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestCLI_ListTable(t *testing.T) {
	cli := newTestCLI(t)
	out, err := cli.run(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Conversations", "Add retries to the client", "Fix the navbar"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_Show(t *testing.T) {
	cli := newTestCLI(t)
	out, err := cli.run(t, "show", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Add retries to the client") || !strings.Contains(out, "Edit") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestCLI_ShowRaw(t *testing.T) {
	cli := newTestCLI(t)
	out, err := cli.run(t, "show", "--raw", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"uuid": "u1"`) || !strings.Contains(out, `"uuid": "a1"`) {
		t.Errorf("raw output:\n%s", out)
	}
}

func TestCLI_ShowNotFound(t *testing.T) {
	cli := newTestCLI(t)
	_, err := cli.run(t, "show", "nope")
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if code := history.ErrorCode(err); code != history.CodeConversationNotFound {
		t.Errorf("code = %q", code)
	}
}

func TestCLI_Meta(t *testing.T) {
	cli := newTestCLI(t)
	out, err := cli.run(t, "meta", "--json", "s1")
	if err != nil {
		t.Fatal(err)
	}
	var got metaOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding: %v\n%s", err, out)
	}
	if got.SessionID != "s1" || got.WorkingDirectory != "/home/me/api" || got.ProjectPath != "/home/me/api" {
		t.Errorf("meta = %+v", got)
	}
	if got.TotalDuration != 4000 {
		t.Errorf("TotalDuration = %v, want 4000", got.TotalDuration)
	}

	if _, err := cli.run(t, "meta", "nope"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("unknown session err = %v", err)
	}
}

func TestCLI_Annotations(t *testing.T) {
	cli := newTestCLI(t)

	steps := [][]string{
		{"pin", "s1"},
		{"archive", "s2"},
		{"rename", "s1", "retry work"},
		{"continue", "s1", "s2"},
	}
	for _, args := range steps {
		if _, err := cli.run(t, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	res := cli.listJSON(t, "--pinned")
	if res.Total != 1 || res.Conversations[0].SessionID != "s1" {
		t.Fatalf("--pinned: %+v", res)
	}
	info := res.Conversations[0].SessionInfo
	if info.CustomName != "retry work" || info.ContinuationSessionID != "s2" {
		t.Errorf("session info = %+v", info)
	}

	res = cli.listJSON(t, "--archived=false")
	if res.Total != 1 || res.Conversations[0].SessionID != "s1" {
		t.Errorf("--archived=false: %+v", res)
	}
	res = cli.listJSON(t, "--has-continuation")
	if res.Total != 1 || res.Conversations[0].SessionID != "s1" {
		t.Errorf("--has-continuation: %+v", res)
	}

	if _, err := cli.run(t, "unpin", "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cli.run(t, "unarchive", "s2"); err != nil {
		t.Fatal(err)
	}
	if res := cli.listJSON(t, "--pinned"); res.Total != 0 {
		t.Errorf("after unpin: %+v", res)
	}
	if res := cli.listJSON(t, "--archived"); res.Total != 0 {
		t.Errorf("after unarchive: %+v", res)
	}
}

func TestCLI_AnnotateUnknownSession(t *testing.T) {
	cli := newTestCLI(t)
	if _, err := cli.run(t, "pin", "nope"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCLI_AnnotateWithoutStore(t *testing.T) {
	cli := newTestCLI(t)
	// A regular file where the database directory should be makes Open fail.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cli.db = filepath.Join(blocker, "sessions.db")

	if _, err := cli.run(t, "pin", "s1"); !errors.Is(err, errNoStore) {
		t.Errorf("err = %v, want errNoStore", err)
	}
	// Reads still work, with default annotations.
	if res := cli.listJSON(t); res.Total != 2 {
		t.Errorf("list without store: %+v", res)
	}
}

func TestCLI_InvalidLogLevel(t *testing.T) {
	cli := newTestCLI(t)
	cmd := newRootCmd(func(string) string { return "" })
	defer cmd.close()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--claude-dir", cli.home, "--db", cli.db, "--log-level", "loud", "list"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestCLI_FailingCommandClosesStore(t *testing.T) {
	cli := newTestCLI(t)
	cmd := newRootCmd(func(string) string { return "" })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--claude-dir", cli.home, "--db", cli.db, "--log-level", "error", "show", "no-such-session"})
	if err := cmd.ExecuteContext(context.Background()); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("show: err = %v, want ErrNotFound", err)
	}
	if cmd.app == nil || cmd.app.store == nil {
		t.Fatal("store was not opened")
	}
	store := cmd.app.store

	cmd.close()
	if cmd.app != nil {
		t.Error("app still set after close")
	}
	if _, err := store.SessionInfo(context.Background(), "s1"); err == nil {
		t.Error("store still usable after close")
	}
	cmd.close() // idempotent
}

type stubLister struct {
	res     history.ListResult
	calls   int
	cleared int
}

func (s *stubLister) ListConversations(context.Context, *history.ListQuery) (history.ListResult, error) {
	s.calls++
	return s.res, nil
}

func (s *stubLister) ClearCache() { s.cleared++ }

func TestWatchListing_ReprintsOnChange(t *testing.T) {
	lister := &stubLister{res: history.ListResult{
		Conversations: []history.ConversationSummary{{SessionID: "s1", Summary: "watched", UpdatedAt: "2025-03-01T09:00:00Z"}},
		Total:         1,
	}}
	changes := make(chan struct{}, 2)
	changes <- struct{}{}
	changes <- struct{}{}
	close(changes)

	var out bytes.Buffer
	err := watchListing(context.Background(), lister, nil, changes, &out)
	if err == nil || !strings.Contains(err.Error(), "watcher stopped") {
		t.Errorf("err = %v, want watcher stopped", err)
	}
	if lister.calls != 3 {
		t.Errorf("listed %d times, want 3", lister.calls)
	}
	if n := strings.Count(out.String(), "watched"); n != 3 {
		t.Errorf("printed %d times, want 3", n)
	}
}

func TestWatchListing_StopsOnCancel(t *testing.T) {
	lister := &stubLister{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchListing(ctx, lister, nil, make(chan struct{}), &bytes.Buffer{})
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("err = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watchListing did not return after cancel")
	}
}
