package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/provider"
	"github.com/heddlehq/heddle/internal/session"
	"github.com/heddlehq/heddle/internal/store"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, replay, and delete chat sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsDeleteCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := openIndex()
			if err != nil {
				return err
			}
			defer ix.Close()

			// Journals written while the index was unavailable still get
			// a row.
			if _, err := ix.Scan(cmd.Context(), config.Home(), journalMeta); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: journal scan incomplete: %v\n", err)
			}

			rows, err := ix.List()
			if err != nil {
				return err
			}
			printSessionRows(rows, jsonOutput)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func sessionsShowCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Replay a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := openIndex()
			if err != nil {
				return err
			}
			defer ix.Close()

			row, err := resolveSession(ix, args[0])
			if err != nil {
				return err
			}
			msgs, err := session.LoadSession(row.Path)
			if err != nil {
				return fmt.Errorf("load journal: %w", err)
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(msgs, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if meta, err := session.LoadMeta(row.Path); err == nil && meta != nil {
				fmt.Printf("Session %s\n", meta.ID)
				fmt.Printf("  project: %s\n", meta.Cwd)
				fmt.Printf("  model:   %s\n", meta.Model)
				fmt.Printf("  created: %s\n\n", meta.Created)
			}
			for _, msg := range msgs {
				printTranscriptMessage(msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output messages as JSON")
	return cmd
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a session journal and its index row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := openIndex()
			if err != nil {
				return err
			}
			defer ix.Close()

			row, err := resolveSession(ix, args[0])
			if err != nil {
				return err
			}
			if err := os.Remove(row.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove journal: %w", err)
			}
			if err := ix.Delete(row.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted session: %s\n", row.ID)
			return nil
		},
	}
}

func openIndex() (*store.Index, error) {
	home := config.Home()
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(home, "index.db"))
}

// resolveSession accepts a full session id or a unique prefix of one.
func resolveSession(ix *store.Index, arg string) (store.SessionRow, error) {
	row, ok, err := ix.Get(arg)
	if err != nil {
		return store.SessionRow{}, err
	}
	if ok {
		return row, nil
	}

	rows, err := ix.List()
	if err != nil {
		return store.SessionRow{}, err
	}
	var matches []store.SessionRow
	for _, r := range rows {
		if strings.HasPrefix(r.ID, arg) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return store.SessionRow{}, fmt.Errorf("no session matches %q", arg)
	default:
		return store.SessionRow{}, fmt.Errorf("%d sessions match %q, use a longer prefix", len(matches), arg)
	}
}

// journalMeta parses a journal header into an index row, for Scan.
func journalMeta(path string) (store.SessionRow, bool) {
	meta, err := session.LoadMeta(path)
	if err != nil || meta == nil {
		return store.SessionRow{}, false
	}
	row := store.SessionRow{
		ID:         meta.ID,
		Model:      meta.Model,
		CreatedAt:  meta.Created,
		LastActive: meta.Created,
		Path:       path,
	}
	if meta.Cwd != "" {
		row.Project = session.EncodeProjectDir(meta.Cwd)
	}
	if msgs, err := session.LoadSession(path); err == nil {
		row.Messages = len(msgs) + 1 // plus the system prompt
	}
	if info, err := os.Stat(path); err == nil {
		row.LastActive = info.ModTime().UTC().Format(time.RFC3339)
	}
	return row, true
}

func printSessionRows(rows []store.SessionRow, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(rows) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tPROJECT\tMODEL\tMESSAGES\tLAST ACTIVE\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID),
			truncateStr(r.Project, 40),
			r.Model,
			r.Messages,
			r.LastActive,
		)
	}
	tw.Flush()
}

func printTranscriptMessage(msg provider.Message) {
	switch msg.Role {
	case provider.RoleUser:
		fmt.Printf("[user]\n%s\n\n", msg.Text())
	case provider.RoleAssistant:
		for _, call := range msg.ToolCalls {
			fmt.Printf("[assistant] -> %s(%s)\n", call.Function.Name, truncateStr(call.Function.Arguments, 80))
		}
		if text := msg.Text(); text != "" {
			fmt.Printf("[assistant]\n%s\n", text)
		}
		fmt.Println()
	case provider.RoleTool:
		fmt.Printf("[tool %s]\n%s\n\n", msg.ToolCallID, truncateStr(msg.Text(), 200))
	default:
		fmt.Printf("[%s]\n%s\n\n", msg.Role, msg.Text())
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
