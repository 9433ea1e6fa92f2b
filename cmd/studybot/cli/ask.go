package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"studybot/internal/models"
	"studybot/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	askMode   string
	askStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, appLogger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		app, err := newApplication(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer app.Close()

		question := strings.Join(args, " ")
		return ask(ctx, app, cmd.OutOrStdout(), question, models.ParseMode(askMode), askStream)
	},
}

func init() {
	askCmd.Flags().StringVarP(&askMode, "mode", "m", string(models.ModeShort), "Answer length (short, long)")
	askCmd.Flags().BoolVarP(&askStream, "stream", "s", false, "Print the answer as it is generated")
}

func ask(ctx context.Context, app *application, out io.Writer, question string, mode models.Mode, stream bool) error {
	if !stream {
		_, err := fmt.Fprintln(out, app.chatService.Resolve(ctx, question, nil, mode))
		return err
	}

	for chunk := range app.chatService.ResolveStream(ctx, question, nil, mode) {
		if _, err := io.WriteString(out, chunk); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}
