package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "studybot",
	Short: "Q&A chatbot for programming students",
	Long: `Studybot answers programming questions from a local knowledge base and
falls back to a language model when nothing local matches.`,
	SilenceUsage: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(askCmd)
	RootCmd.AddCommand(kbCmd)
}
