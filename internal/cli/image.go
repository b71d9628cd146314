package cli

import (
	"fmt"
	"strings"

	"github.com/erg0nix/parley/internal/image"

	"github.com/spf13/cobra"
)

func newImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [prompt]",
		Short: "Generate images and print their URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImageCmd,
	}

	cmd.Flags().Int("amount", 0, "number of images")
	cmd.Flags().String("quality", "", "image quality (standard, hd)")
	cmd.Flags().String("resolution", "", "image resolution, e.g. 1024x1024")
	cmd.Flags().String("style", "", "image style (vivid, natural)")
	cmd.Flags().String("user", "", "end-user identifier sent with the request")
	cmd.Flags().Bool("dry-run", false, "validate and print the cost without generating")

	return cmd
}

func runImageCmd(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	img, err := app.Client.Image()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	opts := image.Options{
		User:       stringFlag(flags, "user"),
		Amount:     intFlag(flags, "amount"),
		Quality:    stringFlag(flags, "quality"),
		Resolution: stringFlag(flags, "resolution"),
		Style:      stringFlag(flags, "style"),
	}
	prompt := strings.TrimSpace(strings.Join(args, " "))

	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		if _, err := img.Resolve(opts, prompt); err != nil {
			return err
		}
		cost, err := img.Cost(opts)
		if err != nil {
			return err
		}
		fmt.Println(styleCost.Render(fmt.Sprintf("$%.3f", cost)))
		return nil
	}

	urls, err := img.Generate(cmd.Context(), opts, prompt)
	if err != nil {
		return err
	}

	for _, url := range urls {
		fmt.Println(url)
	}
	return nil
}
