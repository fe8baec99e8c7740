package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/logger"
	"github.com/jobcraft/jobcraft/internal/progress"
	"github.com/jobcraft/jobcraft/internal/session"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app       = "jobcraft"
	envPrefix = "JOBCRAFT"
)

type Config struct {
	API           api.Config         `mapstructure:",squash"`
	Session       session.Config     `mapstructure:"session"`
	Progress      progress.Options   `mapstructure:"progress"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Serve         ServeConfig        `mapstructure:"serve"`
}

type NotificationConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "jobcraft scores a resume against a job description using the jobcraft analysis service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		errLogger, lerr := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if lerr != nil {
			errLogger = zap.NewNop()
		}
		report(os.Stderr, errLogger, err)
	}
	return err
}

func init() {
	if err := viper.BindEnv("session.token-file", envPrefix+"_TOKEN_FILE"); err != nil {
		log.Fatalf("binding %s_TOKEN_FILE environment variable: %v", envPrefix, err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobcraft.yaml in current directory)")
	rootCmd.PersistentFlags().String("api-url", "", "base url of the analysis service")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging and command output")

	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

// setDefaults registers every key so AutomaticEnv can fill it on Unmarshal.
func setDefaults() {
	defaults := progress.DefaultOptions()

	viper.SetDefault("api-url", "http://localhost:8000")
	viper.SetDefault("user-agent", "jobcraft-cli")
	viper.SetDefault("timeouts.default", 10*time.Second)
	viper.SetDefault("timeouts.analyze", 60*time.Second)
	viper.SetDefault("retry.max-retries", 2)
	viper.SetDefault("retry.base-delay", 500*time.Millisecond)
	viper.SetDefault("session.oauth.token-url", "")
	viper.SetDefault("session.oauth.client-id", "")
	viper.SetDefault("session.oauth.client-secret", "")
	viper.SetDefault("session.oauth.client-secret-file", "")
	viper.SetDefault("progress.step", defaults.Step)
	viper.SetDefault("progress.step-interval", defaults.StepInterval)
	viper.SetDefault("progress.ceiling", defaults.Ceiling)
	viper.SetDefault("progress.animation", defaults.AnimationDuration)
	viper.SetDefault("progress.frame-interval", defaults.FrameInterval)
	viper.SetDefault("notifications.ttl", 5*time.Second)
	viper.SetDefault("serve.addr", "127.0.0.1:8080")
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but we can't proceed if it is parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
