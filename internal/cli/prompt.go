package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt [text]",
		Short: "Send a single prompt without conversation history",
		Args:  cobra.ArbitraryArgs,
		RunE:  runPromptCmd,
	}

	addChatFlags(cmd.Flags())
	cmd.Flags().Bool("stream", false, "print the reply as it arrives")
	cmd.Flags().Bool("cost", false, "print the estimated cost after the reply")

	return cmd
}

func runPromptCmd(cmd *cobra.Command, args []string) error {
	prompt, err := promptText(args, os.Stdin)
	if err != nil {
		return err
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	ch, err := app.Client.Chat()
	if err != nil {
		return err
	}

	opts := chatOptions(cmd.Flags())
	stream, _ := cmd.Flags().GetBool("stream")
	showCost, _ := cmd.Flags().GetBool("cost")

	var reply string
	if stream {
		reply, err = ch.PromptStream(cmd.Context(), opts, prompt, func(chunk string) {
			fmt.Print(chunk)
		})
		fmt.Println()
	} else {
		reply, err = ch.Prompt(cmd.Context(), opts, prompt)
		if err == nil {
			printMarkdown(os.Stdout, newMarkdownRenderer(), reply)
		}
	}
	if err != nil {
		return err
	}

	if showCost {
		fmt.Println(styleCost.Render(fmt.Sprintf("$%.6f", ch.PromptCost(prompt, reply))))
	}

	return nil
}

// promptText joins args, falling back to reading r when no argument is given.
func promptText(args []string, r io.Reader) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt != "" {
		return prompt, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}

	prompt = strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	return prompt, nil
}
