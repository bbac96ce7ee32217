package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pysetupinfo/internal/app"
)

type inspectOptions struct {
	Origin originOptions
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect [PATH]",
		Short: "List the packaging files and metadata directories of a package",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	addOriginFlags(cmd, &opts.Origin)
	return cmd
}

func runInspect(ctx context.Context, out io.Writer, opts inspectOptions, args []string) error {
	origin, err := opts.Origin.requirement()
	if err != nil {
		return err
	}
	cfg, err := appConfig()
	if err != nil {
		return err
	}
	service, err := app.NewService(cfg)
	if err != nil {
		return err
	}
	defer service.Close()

	result, err := service.Inspect(ctx, app.InspectRequest{
		Location: locationArg(args),
		Origin:   origin,
	})
	if err != nil {
		return err
	}
	printDeclarations(out, result)
	return nil
}

func printDeclarations(out io.Writer, result app.InspectResult) {
	decl := result.Declarations
	fmt.Fprintf(out, "base dir: %s\n", decl.BaseDir)
	for _, entry := range []struct{ label, path string }{
		{"setup.py", decl.SetupScript},
		{"setup.cfg", decl.SetupConfig},
		{"pyproject.toml", decl.Pyproject},
	} {
		if entry.path == "" {
			fmt.Fprintf(out, "%s: -\n", entry.label)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", entry.label, entry.path)
	}
	if decl.BuildBackend != "" {
		fmt.Fprintf(out, "build backend: %s\n", decl.BuildBackend)
		fmt.Fprintf(out, "build requires: %v\n", decl.BuildRequires)
	}
	fmt.Fprintf(out, "metadata directories: %d\n", len(decl.MetadataDirs))
	for _, dir := range decl.MetadataDirs {
		fmt.Fprintf(out, "- %s (%s) %s %s\n", dir.Path, dir.Layout, dir.Name, dir.Version)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
}
