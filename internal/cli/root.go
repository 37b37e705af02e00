package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clausewise/internal/logger"
	"github.com/ppiankov/clausewise/internal/model"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0"

const envPrefix = "CLAUSEWISE"

var (
	cfgFile string
	verbose bool
	noCache bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clausewise",
	Short: "Clausewise - contract clause analysis (not legal advice)",
	Long: `Clausewise splits contracts into clauses, labels each clause with a
legal type, links cross-references, scores risk and lists the obligations
and rights each party takes on.

Documents can be plain text, HTML, PDF or DOCX files, or URLs.

Clausewise highlights what deserves a careful read. It does not replace
review by counsel.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Clausewise.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clausewise %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.clausewise/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	pf.BoolVar(&noCache, "no-cache", false, "disable the model result cache")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")
	pf.String("llm-provider", "", "model provider for classification (openai, anthropic, ollama; empty for rules only)")
	pf.String("llm-model", "", "model name for the provider")
	pf.String("format", "", "output format (json, markdown)")
	pf.String("contract-type", "", "contract type used for score calibration (e.g. NDA, MSA)")

	// Bind flags to viper keys
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("llm.provider", pf.Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", pf.Lookup("llm-model"))
	_ = viper.BindPFlag("output.format", pf.Lookup("format"))
	_ = viper.BindPFlag("risk.default_contract_type", pf.Lookup("contract-type"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and CLAUSEWISE_* variables
func initConfig() {
	// A missing .env file is normal
	_ = godotenv.Load()

	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".clausewise"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CLAUSEWISE_LLM_PROVIDER overrides llm.provider
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Keys omitted from the default YAML still need an environment binding
	for _, key := range []string{"llm.api_key", "llm.base_url", "http.http_proxy", "http.https_proxy", "http.no_proxy", "cache.dir"} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
	}
}

// loadConfig resolves the effective configuration: flags, environment,
// config file, then defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Risk.Calibrations = upperKeys(cfg.Risk.Calibrations)

	if noCache {
		cfg.Cache.Enabled = false
	}
	if verbose {
		cfg.Log.Level = "debug"
		cfg.Output.Verbose = true
	}
	applyProviderEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// upperKeys folds viper's lower-cased calibration keys onto the upper-case
// names used for lookup. Lower-cased entries come from configuration and win.
func upperKeys(in map[string]model.Calibration) map[string]model.Calibration {
	out := make(map[string]model.Calibration, len(in))
	for name, cal := range in {
		if name == strings.ToUpper(name) {
			out[name] = cal
		}
	}
	for name, cal := range in {
		if name != strings.ToUpper(name) {
			out[strings.ToUpper(name)] = cal
		}
	}
	return out
}

// applyProviderEnv fills provider credentials from the provider's usual variables
func applyProviderEnv(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// registerDefaults declares every config key so environment variables can
// override keys absent from the config file
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		// Calibrations are keyed by contract type, not by field
		if sub, ok := val.(map[string]any); ok && key != "risk.calibrations" {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// newLogger builds the process logger from configuration
func newLogger(cfg *model.Config) (logger.Logger, error) {
	return logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
