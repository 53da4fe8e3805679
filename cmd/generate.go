package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/input"
	"github.com/kris-hansen/scrollystory/utils/prompt"
	"github.com/kris-hansen/scrollystory/utils/story"
)

var (
	generateFlags        runFlags
	generateStyle        string
	generateInstructions string
)

var generateCmd = &cobra.Command{
	Use:   "generate <csv>",
	Short: "Generate a scrollytelling story from a CSV file",
	Long: `Generate profiles the CSV (a file path, - for stdin, or an http(s) URL), sends
the profile to the configured model and writes the returned HTML document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := loadEnv()
		if err != nil {
			return err
		}
		gen := envConfig.GetGenerationConfig()

		dataset, err := loadInput(cmd, args[0], input.DatasetExtensions)
		if err != nil {
			return err
		}

		style := generateStyle
		if style == "" {
			style = gen.StoryStyle
		}
		if style != "" && !knownStyle(style) {
			config.WarnLog("Unknown story style %q; known styles: %s", style, strings.Join(prompt.StoryStyles(), ", "))
		}

		g, err := newGenerator(cmd, envConfig, &generateFlags)
		if err != nil {
			return err
		}

		req := story.Request{
			CSV:          dataset.Text(),
			FileName:     dataset.Name,
			StoryStyle:   style,
			Instructions: generateInstructions,
			Stream:       generateFlags.streaming(gen),
		}
		return runStory(cmd, g, req, generateFlags.outputPath(gen), generateFlags.echo)
	},
}

func knownStyle(style string) bool {
	for _, s := range prompt.StoryStyles() {
		if strings.EqualFold(s, style) {
			return true
		}
	}
	return false
}

func init() {
	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVar(&generateStyle, "style", "",
		fmt.Sprintf("story style (%s)", strings.Join(prompt.StoryStyles(), ", ")))
	generateCmd.Flags().StringVarP(&generateInstructions, "instructions", "i", "", "additional instructions for the story")
	rootCmd.AddCommand(generateCmd)
}
