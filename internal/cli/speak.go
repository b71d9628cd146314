package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/erg0nix/parley/internal/speech"

	"github.com/spf13/cobra"
)

func newSpeakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesize speech into an audio file",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSpeakCmd,
	}

	cmd.Flags().String("voice", "", "voice name")
	cmd.Flags().String("format", "", "audio format (mp3, opus, aac, flac, wav, pcm)")
	cmd.Flags().Float64("speed", 0, "playback speed (0.25 to 4)")
	cmd.Flags().StringP("output", "o", "", "output file (default speech.<format>)")
	cmd.Flags().Bool("wav", false, "request raw pcm and wrap it into a WAV file")

	return cmd
}

func runSpeakCmd(cmd *cobra.Command, args []string) error {
	input, err := promptText(args, os.Stdin)
	if err != nil {
		return err
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	sp, err := app.Client.Speech()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	opts := speech.Options{
		Voice:  stringFlag(flags, "voice"),
		Format: stringFlag(flags, "format"),
		Speed:  float64Flag(flags, "speed"),
	}
	asWAV, _ := flags.GetBool("wav")

	format := app.Config.Speech.Format
	if opts.Format != nil {
		format = *opts.Format
	}

	var data []byte
	if asWAV {
		format = "wav"
		data, err = sp.SpeakWAV(cmd.Context(), opts, input)
	} else {
		data, err = sp.Speak(cmd.Context(), opts, input)
	}
	if err != nil {
		return err
	}

	output, _ := flags.GetString("output")
	if strings.TrimSpace(output) == "" {
		output = "speech." + format
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	fmt.Println(styleSuccess.Render("wrote "+output) + " " +
		styleDim.Render(fmt.Sprintf("(%d bytes, $%.6f)", len(data), sp.Price(input))))
	return nil
}
