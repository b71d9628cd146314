package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erg0nix/parley/internal/audio"
	"github.com/erg0nix/parley/internal/transcription"

	"github.com/spf13/cobra"
)

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscribeCmd,
	}

	cmd.Flags().String("language", "", "ISO-639-1 language of the audio")
	cmd.Flags().String("prompt", "", "text to guide the transcription")
	cmd.Flags().Float64("temperature", 0, "sampling temperature")
	cmd.Flags().String("input-format", "", "input encoding (default from the file extension)")
	cmd.Flags().Int("sample-rate", 0, "sample rate of raw pcm, ulaw or alaw input")

	return cmd
}

func runTranscribeCmd(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	tr, err := app.Client.Transcription()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	opts := transcription.Options{
		Prompt:      stringFlag(flags, "prompt"),
		Language:    stringFlag(flags, "language"),
		Temperature: float64Flag(flags, "temperature"),
		InputFormat: stringFlag(flags, "input-format"),
		SampleRate:  intFlag(flags, "sample-rate"),
	}
	if opts.InputFormat == nil {
		format := formatFromPath(path)
		opts.InputFormat = &format
	}

	text, err := tr.Transcribe(cmd.Context(), opts, data)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}

// formatFromPath maps a file extension to an input encoding. Unknown extensions are passed
// through as container formats.
func formatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	switch ext {
	case "ul", "ulaw", "mulaw", "mu":
		return audio.EncodingULaw
	case "al", "alaw":
		return audio.EncodingALaw
	case "pcm", "raw", "s16", "s16le":
		return audio.EncodingPCM
	case "":
		return audio.EncodingWAV
	default:
		return ext
	}
}
