package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/observability"
	"github.com/matzehuels/relnet/pkg/pipeline"
)

// maxPrintedWarnings limits warnings shown after a build.
const maxPrintedWarnings = 10

// buildOptions holds flags for the build command.
type buildOptions struct {
	format   string
	output   string
	layout   string
	detailed bool
	refresh  bool
	table    bool

	images       bool
	strictImages bool
	imageDir     string

	cache cacheFlags
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "Compile a relationship document and render it",
		Long: `Compile a YAML or TOML relationship document into a network and render it.

The output file is named after the input: network.yaml becomes network.svg.
Use --output - to write to stdout.`,
		Example: `  # Render network.yaml to network.svg
  relnet build network.yaml

  # Emit the compiled graph model as JSON
  relnet build network.yaml --format json

  # Fetch node images, failing if any is missing
  relnet build network.yaml --images --strict-images`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			var images *bool
			if cmd.Flags().Changed("images") {
				images = &opts.images
			}
			return c.runBuild(cmd.Context(), args[0], opts, images)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", pipeline.DefaultFormat, "output format: svg, png, dot, json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format's extension)")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "graphviz layout engine: neato, dot, fdp, sfdp, circo, twopi")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node degrees in labels")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached graphs and artifacts")
	cmd.Flags().BoolVar(&opts.table, "table", false, "print the degree table even if config.node.table is off")
	cmd.Flags().BoolVar(&opts.images, "images", false, "acquire node images (overrides config.download_images)")
	cmd.Flags().BoolVar(&opts.strictImages, "strict-images", false, "fail when an image cannot be fetched or located")
	cmd.Flags().StringVar(&opts.imageDir, "image-dir", "", "image directory (overrides config.images.dir)")
	opts.cache.register(cmd)
	completeFlagValues(cmd, renderFlagValues())

	return cmd
}

func (c *CLI) runBuild(ctx context.Context, input string, opts buildOptions, images *bool) error {
	prog := newProgress(c.Logger)

	doc, err := document.Load(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newBuildSpinner(ctx, os.Stderr, input)
	observability.SetPipelineHooks(spinner)
	defer observability.Reset()
	spinner.Start()
	res, err := runner.Execute(ctx, doc, pipeline.Options{
		Images:       images,
		StrictImages: opts.strictImages,
		ImageDir:     opts.imageDir,
		Format:       opts.format,
		Layout:       opts.layout,
		Detailed:     opts.detailed,
		Refresh:      opts.refresh,
		Logger:       c.Logger,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = outputPath(input, res.Format)
	}
	if out == "-" {
		_, err := os.Stdout.Write(res.Artifact)
		return err
	}
	if err := os.WriteFile(out, res.Artifact, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	prog.done("Compiled " + input)

	printSuccess("Built %s", input)
	printStats(res)
	printFile(out)
	if len(res.Warnings) > 0 {
		printWarnings(res.Warnings, maxPrintedWarnings)
	}

	rows := res.Report.Rows
	if len(rows) == 0 && opts.table {
		rows = reportRows(res.Graph)
	}
	if len(rows) > 0 {
		fmt.Println(renderReport(rows))
	}
	return nil
}
