package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kylesnowschwartz/claude-history/history"
	"github.com/kylesnowschwartz/claude-history/sessioninfo"
)

// rootCmd is the command tree plus the app its PersistentPreRunE opened.
type rootCmd struct {
	*cobra.Command
	app *app
}

// close releases the app opened by the last Execute. cobra skips post-run
// hooks when a command fails, so callers close after Execute returns.
func (r *rootCmd) close() {
	if r.app != nil {
		r.app.close()
		r.app = nil
	}
}

// newRootCmd builds the command tree. getenv is consulted for settings not
// given as flags.
func newRootCmd(getenv func(string) string) *rootCmd {
	var flags configFlags
	r := &rootCmd{}
	getApp := func() *app { return r.app }

	root := &cobra.Command{
		Use:   "claude-history",
		Short: "Browse Claude Code conversation history",
		Long: `Browse the conversations Claude Code has logged under ~/.claude/projects.

Logs are parsed incrementally: only files that changed since the last read
are parsed again. Pin, archive and rename annotations are kept in a small
SQLite database next to your other user configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, getenv)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.logLevel)
			if err != nil {
				return err
			}
			r.close()
			r.app = newApp(cfg, logger)
			return nil
		},
	}
	r.Command = root

	pf := root.PersistentFlags()
	pf.StringVar(&flags.claudeDir, "claude-dir", "", "Claude config directory (default ~/.claude, env "+envClaudeDir+")")
	pf.StringVar(&flags.dbPath, "db", "", "session annotations database (env "+envDBPath+")")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (env "+envLogLevel+")")

	root.AddCommand(
		newListCmd(getApp),
		newShowCmd(getApp),
		newMetaCmd(getApp),
		newWatchCmd(getApp),
		newBrowseCmd(getApp),
		newAnnotateCmd(getApp, "pin", "Pin a conversation", func(ctx context.Context, s *sessioninfo.Store, id string) error {
			return s.SetPinned(ctx, id, true)
		}),
		newAnnotateCmd(getApp, "unpin", "Unpin a conversation", func(ctx context.Context, s *sessioninfo.Store, id string) error {
			return s.SetPinned(ctx, id, false)
		}),
		newAnnotateCmd(getApp, "archive", "Archive a conversation", func(ctx context.Context, s *sessioninfo.Store, id string) error {
			return s.SetArchived(ctx, id, true)
		}),
		newAnnotateCmd(getApp, "unarchive", "Unarchive a conversation", func(ctx context.Context, s *sessioninfo.Store, id string) error {
			return s.SetArchived(ctx, id, false)
		}),
		newRenameCmd(getApp),
		newContinueCmd(getApp),
	)
	return r
}

// listFlags are the filter and paging flags shared by list and watch.
type listFlags struct {
	project         string
	archived        bool
	pinned          bool
	hasContinuation bool
	sortBy          string
	order           string
	limit           int
	offset          int
}

func (f *listFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.project, "project", "", "only conversations from this project path")
	fs.BoolVar(&f.archived, "archived", false, "filter on archived state")
	fs.BoolVar(&f.pinned, "pinned", false, "filter on pinned state")
	fs.BoolVar(&f.hasContinuation, "has-continuation", false, "filter on whether the conversation was continued")
	fs.StringVar(&f.sortBy, "sort", string(history.SortUpdated), "sort field: created or updated")
	fs.StringVar(&f.order, "order", string(history.OrderDesc), "sort order: asc or desc")
	fs.IntVar(&f.limit, "limit", history.DefaultLimit, "maximum conversations to show")
	fs.IntVar(&f.offset, "offset", 0, "conversations to skip")
}

// query builds a ListQuery. Boolean filters apply only when their flag was
// given, so --archived=false differs from no flag at all.
func (f *listFlags) query(cmd *cobra.Command) (*history.ListQuery, error) {
	sortBy, err := history.ParseSortField(f.sortBy)
	if err != nil {
		return nil, err
	}
	order, err := history.ParseSortOrder(f.order)
	if err != nil {
		return nil, err
	}
	if f.limit < 0 || f.offset < 0 {
		return nil, errors.New("--limit and --offset must not be negative")
	}
	return &history.ListQuery{
		ProjectPath:     f.project,
		HasContinuation: changedBool(cmd, "has-continuation", f.hasContinuation),
		Archived:        changedBool(cmd, "archived", f.archived),
		Pinned:          changedBool(cmd, "pinned", f.pinned),
		SortBy:          sortBy,
		Order:           order,
		Limit:           f.limit,
		Offset:          f.offset,
	}, nil
}

func changedBool(cmd *cobra.Command, name string, v bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func newListCmd(getApp func() *app) *cobra.Command {
	var (
		lf     listFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := lf.query(cmd)
			if err != nil {
				return err
			}
			res, err := getApp().reader.ListConversations(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderListing(res.Conversations, res.Total, time.Now(), terminalWidth()))
			return err
		},
	}
	lf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newShowCmd(getApp func() *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := getApp().reader.FetchConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				return writeRaw(out, msgs)
			}
			_, err = fmt.Fprintln(out, renderConversation(msgs, newMDRenderer(), terminalWidth()))
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print each message as JSON")
	return cmd
}

// writeRaw prints messages as indented, highlighted JSON.
func writeRaw(out io.Writer, msgs []history.Message) error {
	hl := newJSONHL(hasDarkBg, out)
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encoding message %s: %w", m.UUID, err)
		}
		if _, err := fmt.Fprintln(out, hl.highlight(b)); err != nil {
			return err
		}
	}
	return nil
}

// metaOutput is the JSON shape of `meta --json`.
type metaOutput struct {
	SessionID        string `json:"sessionId"`
	WorkingDirectory string `json:"workingDirectory"`
	history.Metadata
}

func newMetaCmd(getApp func() *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "meta <session-id>",
		Short: "Show a conversation's summary, project and model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, id := getApp(), args[0]
			meta, ok := a.reader.ConversationMetadata(cmd.Context(), id)
			if !ok {
				return fmt.Errorf("conversation %s: %w", id, history.ErrNotFound)
			}
			workDir, _ := a.reader.WorkingDirectory(cmd.Context(), id)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), metaOutput{SessionID: id, WorkingDirectory: workDir, Metadata: meta})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderMetadata(id, meta, workDir))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newWatchCmd(getApp func() *app) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprint the conversation list whenever the logs change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := lf.query(cmd)
			if err != nil {
				return err
			}
			a := getApp()
			w := newProjectsWatcher(a.reader.ProjectsDir(), a.logger)
			go w.run()
			defer w.stop()
			return watchListing(cmd.Context(), a.reader, q, w.changes(), cmd.OutOrStdout())
		},
	}
	lf.register(cmd)
	return cmd
}

// watchListing prints the listing once, then again after every change
// signal, until ctx is done or changes closes.
func watchListing(ctx context.Context, r conversationLister, q *history.ListQuery, changes <-chan struct{}, out io.Writer) error {
	var screen *termenv.Output
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		screen = termenv.NewOutput(f)
	}
	render := func() error {
		res, err := r.ListConversations(ctx, q)
		if err != nil {
			return err
		}
		if screen != nil {
			screen.ClearScreen()
		}
		_, err = fmt.Fprintln(out, renderListing(res.Conversations, res.Total, time.Now(), terminalWidth()))
		return err
	}

	if err := render(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return errors.New("file watcher stopped")
			}
			if err := render(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func newBrowseCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse conversations interactively",
		Long: `Browse conversations grouped by date. The list refreshes as Claude Code
writes new log lines. Press enter to print the selected conversation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()

			w := newProjectsWatcher(a.reader.ProjectsDir(), a.logger)
			go w.run()
			defer w.stop()

			var notes annotator
			if a.store != nil {
				notes = a.store
			}
			final, err := tea.NewProgram(newBrowseModel(ctx, a.reader, notes, w.changes()), tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			m, ok := final.(browseModel)
			if !ok || m.selected == "" {
				return nil
			}
			msgs, err := a.reader.FetchConversation(ctx, m.selected)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderConversation(msgs, newMDRenderer(), terminalWidth()))
			return err
		},
	}
}

// newAnnotateCmd builds a one-argument command that writes an annotation
// for an existing conversation.
func newAnnotateCmd(getApp func() *app, use, short string, set func(context.Context, *sessioninfo.Store, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			if err := a.requireConversation(cmd.Context(), args[0]); err != nil {
				return err
			}
			return set(cmd.Context(), store, args[0])
		},
	}
}

func newRenameCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <name>",
		Short: "Give a conversation a custom name (empty clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			if err := a.requireConversation(cmd.Context(), args[0]); err != nil {
				return err
			}
			return store.SetCustomName(cmd.Context(), args[0], args[1])
		},
	}
}

func newContinueCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "continue <session-id> <continued-in-id>",
		Short: "Record that a conversation was continued in another session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := a.requireConversation(cmd.Context(), id); err != nil {
					return err
				}
			}
			return store.SetContinuation(cmd.Context(), args[0], args[1])
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
