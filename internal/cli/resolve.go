package cli

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pysetupinfo/internal/app"
	"pysetupinfo/internal/core"
	"pysetupinfo/internal/types"
)

type resolveOptions struct {
	Origin originOptions
	Format string
	Output string
	Reload bool
}

// originOptions describe the requirement that asked for the package.
type originOptions struct {
	Requirement  string
	Name         string
	Specifier    string
	Extras       []string
	URL          string
	Editable     bool
	Subdirectory string
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve [PATH]",
		Short: "Resolve name, version and dependencies of a package directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd, opts, args)
		},
	}
	addOriginFlags(cmd, &opts.Origin)
	cmd.Flags().StringVar(&opts.Format, "format", string(types.OutputFormatJSON), "Output format (json or yaml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().BoolVar(&opts.Reload, "reload", false, "Ignore cached results and resolve again")

	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("reload", cmd.Flags().Lookup("reload"))
	return cmd
}

func addOriginFlags(cmd *cobra.Command, opts *originOptions) {
	cmd.Flags().StringVar(&opts.Requirement, "requirement", "", "Origin requirement as a PEP 508 line")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Project name of the origin requirement")
	cmd.Flags().StringVar(&opts.Specifier, "specifier", "", "Version specifier of the origin requirement")
	cmd.Flags().StringSliceVar(&opts.Extras, "extras", nil, "Extras requested by the origin requirement")
	cmd.Flags().StringVar(&opts.URL, "url", "", "Source URL (file:// or local path)")
	cmd.Flags().BoolVarP(&opts.Editable, "editable", "e", false, "Treat the source as an editable install")
	cmd.Flags().StringVar(&opts.Subdirectory, "subdirectory", "", "Package subdirectory inside the source")
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts resolveOptions, args []string) error {
	origin, err := opts.Origin.requirement()
	if err != nil {
		return err
	}
	format, err := parseFormat(resolveString(cmd, opts.Format, "format", "format"))
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
	defer func() {
		if err := service.Close(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	result, err := service.Resolve(ctx, app.ResolveRequest{
		Location: locationArg(args),
		Origin:   origin,
		Reload:   resolveBool(cmd, opts.Reload, "reload", "reload"),
	})
	if err != nil {
		return err
	}
	return service.Output.Write(opts.Output, format, result.Info)
}

// requirement builds the origin. A --requirement line is parsed first and
// the individual flags override its parts.
func (o originOptions) requirement() (types.OriginRequirement, error) {
	var origin types.OriginRequirement
	if line := strings.TrimSpace(o.Requirement); line != "" {
		parsed, err := core.ParseRequirement(line)
		if err != nil {
			return origin, err
		}
		origin.Name = parsed.Name
		origin.Specifier = parsed.Specifier
		origin.Extras = parsed.Extras
		origin.URL = parsed.URL
	}
	if o.Name != "" {
		origin.Name = o.Name
	}
	if o.Specifier != "" {
		if err := core.ValidateSpecifier(o.Specifier); err != nil {
			return origin, err
		}
		origin.Specifier = o.Specifier
	}
	if len(o.Extras) > 0 {
		origin.Extras = o.Extras
	}
	if o.URL != "" {
		origin.URL = o.URL
	}
	origin.Editable = o.Editable
	origin.Subdirectory = o.Subdirectory
	return origin, nil
}

func parseFormat(value string) (types.OutputFormat, error) {
	switch format := types.OutputFormat(strings.ToLower(strings.TrimSpace(value))); format {
	case "", types.OutputFormatJSON:
		return types.OutputFormatJSON, nil
	case types.OutputFormatYAML, "yml":
		return types.OutputFormatYAML, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported output format: " + value)
	}
}

func locationArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
