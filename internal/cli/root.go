package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pysetupinfo/internal/app"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PYSETUPINFO"

type RootConfig struct {
	ConfigFile string
	Verbose    bool
	CacheDir   string
	PythonPath string
	SrcDir     string
	RedisURL   string
	CacheTTL   string
	IndexURL   string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:          "pysetupinfo",
		Short:        "Resolve metadata of Python source packages",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetBool("verbose"))
			cmd.SetContext(log.Logger.WithContext(cmd.Context()))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path (yaml or toml)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&cfg.CacheDir, "cache-dir", "", "pip cache directory for build environments")
	flags.StringVar(&cfg.PythonPath, "python", "", "Python interpreter used for builds and setup.py")
	flags.StringVar(&cfg.SrcDir, "src-dir", "", "Parent directory for long-lived work directories")
	flags.StringVar(&cfg.RedisURL, "redis-url", "", "Redis URL for a shared resolution cache")
	flags.StringVar(&cfg.CacheTTL, "cache-ttl", "24h", "Lifetime of cached resolutions (0 keeps them)")
	flags.StringVar(&cfg.IndexURL, "index-url", "", "Package index used to install build requirements")
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("cache_dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("python_path", flags.Lookup("python"))
	_ = viper.BindPFlag("src_dir", flags.Lookup("src-dir"))
	_ = viper.BindPFlag("redis_url", flags.Lookup("redis-url"))
	_ = viper.BindPFlag("cache_ttl", flags.Lookup("cache-ttl"))
	_ = viper.BindPFlag("index_url", flags.Lookup("index-url"))

	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newInspectCommand())
	return cmd
}

// legacyEnv lists the environment variables pip and pipenv users already
// set, consulted after the PYSETUPINFO_ ones.
var legacyEnv = map[string][]string{
	"cache_dir":   {"PIPENV_CACHE_DIR"},
	"python_path": {"PIP_PYTHON_PATH"},
	"src_dir":     {"PIP_SRC"},
	"index_url":   {"PIP_INDEX_URL"},
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	for key, names := range legacyEnv {
		_ = viper.BindEnv(append([]string{key, envPrefix + "_" + strings.ToUpper(key)}, names...)...)
	}
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		viper.SetDefault("src_dir", filepath.Join(venv, "src"))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("pysetupinfo")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/pysetupinfo")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(verbose bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func appConfig() (app.Config, error) {
	ttl, err := durationSetting("cache_ttl")
	if err != nil {
		return app.Config{}, err
	}
	return app.Config{
		CacheDir:   viper.GetString("cache_dir"),
		PythonPath: viper.GetString("python_path"),
		SrcDir:     viper.GetString("src_dir"),
		RedisURL:   viper.GetString("redis_url"),
		CacheTTL:   ttl,
		IndexURL:   viper.GetString("index_url"),
	}, nil
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition, errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeNotFound:
		return 4
	default:
		return 1
	}
}
