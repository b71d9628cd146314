package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/erg0nix/parley/internal/chat"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
)

func TestParseChatCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs string
	}{
		{input: "/clear", wantName: "clear", wantArgs: ""},
		{input: "/STATS", wantName: "stats", wantArgs: ""},
		{input: "/exit now please", wantName: "exit", wantArgs: "now please"},
		{input: "  /help  ", wantName: "help", wantArgs: ""},
		{input: "clear", wantName: "clear", wantArgs: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, args := parseChatCommand(tt.input)
			if name != tt.wantName {
				t.Errorf("parseChatCommand(%q) name = %q, want %q", tt.input, name, tt.wantName)
			}
			if args != tt.wantArgs {
				t.Errorf("parseChatCommand(%q) args = %q, want %q", tt.input, args, tt.wantArgs)
			}
		})
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := writeDefaultConfig(path)
	if err == nil {
		t.Fatal("expected error when the config exists")
	}

	if got, want := err.Error(), path+" already exists; remove it first to regenerate"; got != want {
		t.Fatalf("unexpected error: %s", got)
	}
}

func TestInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg.Chat.Model != config.Default().Chat.Model {
		t.Fatalf("chat model = %q, want default", cfg.Chat.Model)
	}
}

func TestInitRejectsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")

	if err := writeDefaultConfig(path); err == nil {
		t.Fatal("expected error for a JSON path")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("config file should not exist, stat err = %v", err)
	}
}

func TestChatOptions(t *testing.T) {
	flags := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	addChatFlags(flags)

	if err := flags.Parse([]string{"--temperature=0", "--max-calls=3", "--instruction", "Be brief."}); err != nil {
		t.Fatal(err)
	}

	opts := chatOptions(flags)

	if opts.Temperature == nil || *opts.Temperature != 0 {
		t.Fatalf("temperature = %v, want explicit 0", opts.Temperature)
	}
	if opts.MaxConversationCalls == nil || *opts.MaxConversationCalls != 3 {
		t.Fatalf("max calls = %v, want 3", opts.MaxConversationCalls)
	}
	if opts.Instruction == nil || *opts.Instruction != "Be brief." {
		t.Fatalf("instruction = %v", opts.Instruction)
	}
	if opts.TopP != nil || opts.MaxOutputTokens != nil || opts.User != nil {
		t.Fatal("unset flags must stay nil")
	}
}

func TestPromptText(t *testing.T) {
	got, err := promptText([]string{"hello", "world"}, strings.NewReader("ignored"))
	if err != nil || got != "hello world" {
		t.Fatalf("promptText(args) = %q, %v", got, err)
	}

	got, err = promptText(nil, strings.NewReader("  from stdin\n"))
	if err != nil || got != "from stdin" {
		t.Fatalf("promptText(stdin) = %q, %v", got, err)
	}

	if _, err := promptText(nil, strings.NewReader("   ")); err == nil {
		t.Fatal("expected error for an empty prompt")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"call.ulaw":   "ulaw",
		"call.UL":     "ulaw",
		"call.alaw":   "alaw",
		"capture.raw": "pcm",
		"note.wav":    "wav",
		"song.MP3":    "mp3",
		"noext":       "wav",
	}

	for path, want := range tests {
		if got := formatFromPath(path); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBudgetSummary(t *testing.T) {
	got := budgetSummary(config.ChatConfig{MaxOutputTokens: 1024, MaxConversationCalls: 3, MaxTokenSpendingLimit: 16384})
	want := "token limit 16384 allows 3 turns of 1024 tokens; 3 calls need 14336 tokens"
	if got != want {
		t.Fatalf("budgetSummary = %q, want %q", got, want)
	}
}

func TestBudgetSummarySaturates(t *testing.T) {
	got := budgetSummary(config.ChatConfig{MaxOutputTokens: 1024, MaxConversationCalls: 64, MaxTokenSpendingLimit: math.MaxInt})

	if strings.Contains(got, "-") {
		t.Fatalf("budget summary contains a negative number: %q", got)
	}
	if !strings.Contains(got, fmt.Sprintf("64 calls need more than %d tokens", math.MaxInt)) {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestModelsTable(t *testing.T) {
	out := modelsTable().Render()

	for _, want := range []string{"gpt-4o-mini", "dall-e-3", "tts-1-hd", "whisper-1", "$0.04 to $0.12 per image"} {
		if !strings.Contains(out, want) {
			t.Errorf("models table missing %q", want)
		}
	}
}

type echoInvoker struct{}

func (echoInvoker) Complete(_ context.Context, req conversation.Request) (core.Message, error) {
	last := req.Messages[len(req.Messages)-1]
	return core.Message{Role: core.RoleAssistant, Content: "echo: " + last.Content}, nil
}

func (echoInvoker) Stream(context.Context, conversation.Request) (conversation.ChunkStream, error) {
	return nil, errors.New("streaming not supported")
}

func newTestSession(t *testing.T, opts params.Options) (*chatSession, *bytes.Buffer) {
	t.Helper()

	cfg := config.Default()
	ch, err := chat.New(cfg.Chat.Model, params.DefaultsFromConfig(cfg), echoInvoker{}, nil)
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}

	var out bytes.Buffer
	return &chatSession{chat: ch, id: 1, opts: opts, out: &out}, &out
}

func TestChatSession(t *testing.T) {
	session, out := newTestSession(t, params.Options{})

	input := "hello\n/stats\n/clear\n/bogus\n/exit\nnever sent\n"
	if err := session.run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{"echo: hello", "remaining calls:9", "conversation cleared", "unknown command /bogus"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "never sent") {
		t.Error("input after /exit must not be sent")
	}
	if session.chat.HasConversation(1) {
		t.Error("conversation should be cleared")
	}
}

func TestChatSessionCallLimit(t *testing.T) {
	session, out := newTestSession(t, params.Options{MaxConversationCalls: params.Ptr(1)})

	if err := session.run(context.Background(), strings.NewReader("one\ntwo\n")); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "echo: one") {
		t.Errorf("first reply missing:\n%s", got)
	}
	if !strings.Contains(got, "The conversation has reached the call limit of 1 calls") {
		t.Errorf("call limit notice missing:\n%s", got)
	}
	if session.chat.HasConversation(1) {
		t.Error("conversation should be evicted after the call limit")
	}
}

func TestChatSessionReportsErrors(t *testing.T) {
	session, out := newTestSession(t, params.Options{})
	session.stream = true

	if err := session.run(context.Background(), strings.NewReader("hi\n")); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(out.String(), "streaming not supported") {
		t.Errorf("error not reported:\n%s", out.String())
	}
}
