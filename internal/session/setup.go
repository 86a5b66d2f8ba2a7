package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/instructions"
	"github.com/heddlehq/heddle/internal/mcp"
	"github.com/heddlehq/heddle/internal/provider"
	"github.com/heddlehq/heddle/internal/store"
	"github.com/heddlehq/heddle/internal/tools"
	"github.com/heddlehq/heddle/internal/tools/builtin"
)

// DefaultSystemPrompt is used when neither the caller nor any config layer
// sets one.
const DefaultSystemPrompt = "You are a coding agent. You work inside the " +
	"current project directory using the tools available to you. Read before " +
	"you write, keep changes minimal, and verify your work. When you are " +
	"done, answer with a short plain-text summary."

// Session is one live conversation: provider client, tool registry, journal,
// and the in-memory message history. It is not safe for concurrent use; the
// headless worker and the REPL both drive it from a single goroutine.
type Session struct {
	ID            string
	Cwd           string
	Model         string
	Created       string
	Client        *provider.Client
	Registry      *tools.Registry
	Journal       *Journal
	Conversation  []provider.Message
	MaxIterations int

	mcp        *mcp.Manager
	index      *store.Index
	loader     *instructions.Loader
	basePrompt string
	promptVer  int64
}

// CreateOptions override the layered config for one session. Zero values
// defer to config.
type CreateOptions struct {
	Model         string
	SystemPrompt  string
	Tools         []string
	Cwd           string
	MaxIterations int
}

// Create assembles a ready-to-run session: working directory, layered
// config, credential, provider client, tool registry (built-ins plus MCP
// bridges), journal with its session_meta header, system prompt composed
// from project instructions, and a row in the sessions index.
func Create(ctx context.Context, opts CreateOptions) (*Session, error) {
	home := config.Home()
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("create heddle home: %w", err)
	}

	cwd := opts.Cwd
	if cwd != "" {
		if _, err := os.Stat(cwd); err != nil {
			return nil, fmt.Errorf("working directory %q: %w", cwd, err)
		}
		if err := os.Chdir(cwd); err != nil {
			return nil, fmt.Errorf("chdir %q: %w", cwd, err)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := config.LoadLayered(cwd)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if opts.SystemPrompt != "" {
		cfg.SystemPrompt = opts.SystemPrompt
	}
	if len(opts.Tools) > 0 {
		cfg.Tools = opts.Tools
	}
	if opts.MaxIterations > 0 {
		cfg.MaxIterations = opts.MaxIterations
	}

	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	client := provider.New(provider.Config{
		APIKey:            apiKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		RequestParams:     cfg.RequestParams,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	registry := tools.NewRegistry()
	if err := builtin.Register(registry, cwd, cfg.Tools); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	manager := mcp.Start(ctx, cfg.MCP)
	if err := registerBridged(registry, manager, cfg.Tools); err != nil {
		manager.Close()
		return nil, fmt.Errorf("register mcp tools: %w", err)
	}

	id := uuid.NewString()
	created := time.Now().UTC().Format(time.RFC3339)
	journal, err := NewJournal(FilePath(home, cwd, id))
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("create journal: %w", err)
	}
	if err := journal.WriteMeta(Meta{
		ID:      id,
		Cwd:     cwd,
		Model:   cfg.Model,
		Created: created,
		Version: config.Version,
	}); err != nil {
		manager.Close()
		return nil, fmt.Errorf("write session header: %w", err)
	}

	basePrompt := cfg.SystemPrompt
	if basePrompt == "" {
		basePrompt = DefaultSystemPrompt
	}
	loader := instructions.NewLoader(cwd, home)
	prompt := basePrompt
	if instrCtx := loader.Context(); instrCtx != "" {
		prompt = instrCtx + "\n\n" + prompt
	}

	sess := &Session{
		ID:            id,
		Cwd:           cwd,
		Model:         cfg.Model,
		Created:       created,
		Client:        client,
		Registry:      registry,
		Journal:       journal,
		Conversation:  []provider.Message{provider.SystemMessage(prompt)},
		MaxIterations: cfg.MaxIterations,
		mcp:           manager,
		loader:        loader,
		basePrompt:    basePrompt,
		promptVer:     loader.Version(),
	}

	// The index is a convenience view over the journals; a broken index
	// must not block a session.
	index, err := store.Open(filepath.Join(home, "index.db"))
	if err != nil {
		slog.Warn("sessions index unavailable", "channel", "session", "error", err)
	} else {
		sess.index = index
		if err := index.Insert(store.SessionRow{
			ID:         id,
			Project:    EncodeProjectDir(cwd),
			Path:       journal.Path(),
			Model:      cfg.Model,
			CreatedAt:  created,
			LastActive: created,
			Messages:   len(sess.Conversation),
		}); err != nil {
			slog.Warn("sessions index insert failed", "channel", "session", "error", err)
		}
	}

	return sess, nil
}

// registerBridged adds MCP tools to the registry, honoring the same name
// filter as the built-ins. Empty filter means all.
func registerBridged(reg *tools.Registry, manager *mcp.Manager, filter []string) error {
	if len(filter) == 0 {
		return manager.Register(reg)
	}
	allowed := make(map[string]bool, len(filter))
	for _, name := range filter {
		allowed[name] = true
	}
	for _, tool := range manager.Tools() {
		if !allowed[tool.Name()] {
			continue
		}
		if err := reg.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Append adds one message to the conversation and journals it.
func (s *Session) Append(msg provider.Message) error {
	s.Conversation = append(s.Conversation, msg)
	if s.Journal == nil {
		return nil
	}
	return s.Journal.AppendMessage(msg)
}

// AppendUser adds a user message to the conversation and journals it.
func (s *Session) AppendUser(content string) error {
	return s.Append(provider.UserMessage(content))
}

// JournalFrom persists Conversation[from:] in order. Used after an agent run
// to flush the messages the loop appended in memory.
func (s *Session) JournalFrom(from int) error {
	if s.Journal == nil || from >= len(s.Conversation) {
		return nil
	}
	for _, msg := range s.Conversation[from:] {
		if err := s.Journal.AppendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// SwitchModel redirects subsequent requests to a different model. History
// and journal are unaffected.
func (s *Session) SwitchModel(name string) {
	s.Client = s.Client.With(map[string]any{"model": name})
	s.Model = name
}

// Instructions exposes the loader composing the project-instructions block,
// so long-running callers can watch its files for edits.
func (s *Session) Instructions() *instructions.Loader {
	return s.loader
}

// RefreshInstructions recomposes the system prompt when project instructions
// changed since it was last built. Everything past message 0 is untouched;
// the journal never records the system prompt.
func (s *Session) RefreshInstructions() {
	if s.loader == nil || len(s.Conversation) == 0 {
		return
	}
	v := s.loader.Version()
	if v == s.promptVer {
		return
	}
	s.promptVer = v
	prompt := s.basePrompt
	if instrCtx := s.loader.Context(); instrCtx != "" {
		prompt = instrCtx + "\n\n" + prompt
	}
	s.Conversation[0] = provider.SystemMessage(prompt)
	slog.Debug("system prompt recomposed", "channel", "session", "version", v)
}

// Touch updates the sessions index row with the current message count.
func (s *Session) Touch() {
	if s.index == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.index.Touch(s.ID, now, len(s.Conversation)); err != nil {
		slog.Debug("sessions index touch failed", "channel", "session", "error", err)
	}
}

// Close releases MCP connections and the index handle. The journal needs no
// teardown; every append opens and closes the file.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.mcp != nil {
		s.mcp.Close()
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			slog.Debug("sessions index close failed", "channel", "session", "error", err)
		}
	}
}
