package cli

import (
	"encoding/json"
	"fmt"

	"studybot/internal/repository"
	"studybot/pkg/logger"

	"github.com/spf13/cobra"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the knowledge base",
}

var kbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base status as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, appLogger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		repo := repository.NewKnowledgeRepository(cfg.Knowledge.Path, appLogger)
		data, err := json.MarshalIndent(repo.Status(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	kbCmd.AddCommand(kbStatusCmd)
}
