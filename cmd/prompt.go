package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/scrollystory/utils/input"
	"github.com/kris-hansen/scrollystory/utils/story"
)

var (
	promptStyle        string
	promptInstructions string
)

var promptCmd = &cobra.Command{
	Use:   "prompt <csv>",
	Short: "Print the generation prompt without calling a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataset, err := loadInput(cmd, args[0], input.DatasetExtensions)
		if err != nil {
			return err
		}

		text, _, err := story.BuildPrompt(story.Request{
			CSV:          dataset.Text(),
			FileName:     dataset.Name,
			StoryStyle:   promptStyle,
			Instructions: promptInstructions,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", dataset.Name, err)
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	promptCmd.Flags().StringVar(&promptStyle, "style", "", "story style")
	promptCmd.Flags().StringVarP(&promptInstructions, "instructions", "i", "", "additional instructions")
	rootCmd.AddCommand(promptCmd)
}
