package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kris-hansen/scrollystory/utils/input"
	"github.com/kris-hansen/scrollystory/utils/story"
)

var (
	refactorFlags        runFlags
	refactorCSV          string
	refactorInstructions string
)

var refactorCmd = &cobra.Command{
	Use:   "refactor <html>",
	Short: "Modify an existing story document",
	Long: `Refactor sends an existing story document, the profile of its dataset and your
instructions to the model, and writes the modified document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := loadEnv()
		if err != nil {
			return err
		}
		gen := envConfig.GetGenerationConfig()

		document, err := loadInput(cmd, args[0], input.DocumentExtensions)
		if err != nil {
			return err
		}
		dataset, err := loadInput(cmd, refactorCSV, input.DatasetExtensions)
		if err != nil {
			return err
		}

		g, err := newGenerator(cmd, envConfig, &refactorFlags)
		if err != nil {
			return err
		}

		req := story.Request{
			CSV:          dataset.Text(),
			FileName:     dataset.Name,
			Instructions: refactorInstructions,
			PreviousHTML: document.Text(),
			Stream:       refactorFlags.streaming(gen),
		}
		return runStory(cmd, g, req, refactorFlags.outputPath(gen), refactorFlags.echo)
	},
}

func init() {
	refactorFlags.register(refactorCmd)
	refactorCmd.Flags().StringVar(&refactorCSV, "csv", "", "the dataset the story was built from")
	refactorCmd.Flags().StringVarP(&refactorInstructions, "instructions", "i", "", "the change to make")
	_ = refactorCmd.MarkFlagRequired("csv")
	_ = refactorCmd.MarkFlagRequired("instructions")
	rootCmd.AddCommand(refactorCmd)
}
