package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/erg0nix/parley/internal/chat"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/params"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE:  runChatCmd,
	}

	addChatFlags(cmd.Flags())
	cmd.Flags().Int("id", 1, "conversation id")
	cmd.Flags().Bool("stream", true, "print replies as they arrive")

	return cmd
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	ch, err := app.Client.Chat()
	if err != nil {
		return err
	}

	id, _ := cmd.Flags().GetInt("id")
	stream, _ := cmd.Flags().GetBool("stream")

	session := &chatSession{
		chat:     ch,
		id:       id,
		opts:     chatOptions(cmd.Flags()),
		stream:   stream,
		renderer: newMarkdownRenderer(),
		out:      os.Stdout,
	}

	fmt.Println(styleModel.Render(ch.Model()) + " " + styleDim.Render("/help for commands, /exit to quit"))
	return session.run(cmd.Context(), os.Stdin)
}

type chatSession struct {
	chat     *chat.Chat
	id       int
	opts     params.Options
	stream   bool
	renderer *glamour.TermRenderer
	out      io.Writer
}

func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(s.out, styleUserPrompt.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			name, _ := parseChatCommand(line)
			if quit := s.command(name); quit {
				return nil
			}
			continue
		}

		if err := s.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(s.out, styledError("request failed", err.Error()))
		}
	}
}

func (s *chatSession) send(ctx context.Context, message string) error {
	var (
		reply conversation.Reply
		err   error
	)

	if s.stream {
		reply, err = s.chat.ConverseStream(ctx, s.id, s.opts, message, func(chunk string) {
			fmt.Fprint(s.out, chunk)
		})
	} else {
		reply, err = s.chat.Converse(ctx, s.id, s.opts, message)
	}
	if err != nil {
		return err
	}

	switch {
	case reply.Terminated:
		fmt.Fprintln(s.out, styleWarning.Render(reply.Content))
		fmt.Fprintln(s.out, styleDim.Render("conversation cleared; the next message starts a new one"))
	case s.stream:
		fmt.Fprintln(s.out)
	default:
		printMarkdown(s.out, s.renderer, reply.Content)
	}

	return nil
}

func (s *chatSession) command(name string) bool {
	switch name {
	case "exit", "quit":
		return true
	case "clear":
		s.chat.Clear(s.id)
		fmt.Fprintln(s.out, styleSuccess.Render("conversation cleared"))
	case "stats":
		s.printStats()
	case "help":
		fmt.Fprintln(s.out, styleDim.Render("/clear  forget this conversation"))
		fmt.Fprintln(s.out, styleDim.Render("/stats  show token usage and remaining budget"))
		fmt.Fprintln(s.out, styleDim.Render("/exit   quit"))
	default:
		fmt.Fprintln(s.out, styledError("unknown command /"+name, "try /help"))
	}
	return false
}

func (s *chatSession) printStats() {
	snap, ok := s.chat.ConversationSnapshot(s.id)
	if !ok {
		fmt.Fprintln(s.out, styleDim.Render("no conversation yet"))
		return
	}

	defaults := s.chat.Defaults()
	limits := params.Limits{
		MaxCalls:      valueOr(s.opts.MaxConversationCalls, defaults.MaxConversationCalls),
		MaxTokenSpend: valueOr(s.opts.MaxTokenSpendingLimit, defaults.MaxTokenSpendingLimit),
	}
	calls, tokens := snap.Remaining(limits)

	fmt.Fprintln(s.out, styleDim.Render("tokens")+" "+fmt.Sprintf("%d", snap.TotalTokens)+"  "+
		styleDim.Render(fmt.Sprintf("sys:%d user:%d assistant:%d", snap.SystemTokens, snap.UserTokens, snap.AssistantTokens)))
	fmt.Fprintln(s.out, styleDim.Render("calls")+" "+fmt.Sprintf("%d", snap.Calls)+"  "+
		styleDim.Render(fmt.Sprintf("remaining calls:%d tokens:%d", calls, tokens)))
	fmt.Fprintln(s.out, styleDim.Render("cost")+" "+styleCost.Render(fmt.Sprintf("$%.6f", s.chat.ConversationCost(s.id))))
}

// parseChatCommand splits "/name args" into its name and the trimmed remainder.
func parseChatCommand(input string) (string, string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")

	name, args, _ := strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
