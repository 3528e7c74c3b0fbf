package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xhtml2epub/internal/book"
	"xhtml2epub/internal/epub"
	"xhtml2epub/internal/template"
)

var rootCmd = &cobra.Command{
	Use:   "xhtml2epub",
	Short: "Convert a single-file XHTML manuscript to EPUB",
	Long: `xhtml2epub converts an ebook maintained as one browsable,
text-editable XHTML file into a distributable EPUB package.

Book metadata comes from DTD internal entity declarations named title,
author, language and uid. Any block element with an id attribute marks a
chapter; nested ones become sub-chapters.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		templateDir, _ := cmd.Flags().GetString("write-template-dir")
		verbose, _ := cmd.Flags().GetBool("verbose")

		if input == "" && templateDir == "" {
			return cmd.Help()
		}

		log := newLogger(verbose)
		defer log.Sync()

		if templateDir != "" {
			if err := template.Write(templateDir); err != nil {
				return fmt.Errorf("unable to write template: %w", err)
			}
			log.Info("wrote template files", zap.String("dir", templateDir))
		}

		if input != "" {
			b, err := book.Parse(input, log)
			if err != nil {
				return err
			}

			if output == "" {
				output = b.EpubFilename()
			}
			if err := epub.Write(b, output, log); err != nil {
				return err
			}
			log.Info("done", zap.String("output", output))
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringP("input", "i", "", "path to the input XHTML file")
	rootCmd.Flags().StringP("output", "o", "", `write EPUB output here (default "Author - Title.epub")`)
	rootCmd.Flags().StringP("write-template-dir", "t", "", "write ebook template files to this directory")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
