package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ceeox/localdeploy/model"
)

// LoadConfig builds the process configuration from flags, environment
// variables (LOCALDEPLOY_*) and an optional config.yaml in the current
// directory, in that order of precedence. Key paths are expanded and
// the repository path made absolute so the rest of the program never
// deals with relative locations.
func LoadConfig(args []string) (model.Config, error) {
	flags := pflag.NewFlagSet("localdeploy", pflag.ContinueOnError)
	flags.StringP("path", "p", ".", "File path to the working copy")
	flags.StringP("new", "n", "", "URL of the repo to clone when the path holds no repository")
	flags.StringP("branch", "b", "main", "Branch to track")
	flags.StringP("remote", "r", "origin", "Remote to fetch from")
	flags.IntP("interval", "i", 3600, "Seconds between fetches")
	flags.StringP("command", "c", "", "Command to run after new commits arrive")
	flags.StringP("private-key", "k", "~/.ssh/id_rsa", "Path to the SSH private key")
	flags.String("public-key", "~/.ssh/id_rsa.pub", "Path to the SSH public key")
	flags.StringP("username", "u", "git", "SSH username")
	flags.BoolP("passphrase", "a", false, "Prompt once for the private key passphrase")

	config := model.Config{}
	if err := flags.Parse(args); err != nil {
		return config, err
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return config, fmt.Errorf("unable to bind flags: %w", err)
	}
	v.SetEnvPrefix("localdeploy")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	config = model.Config{
		Path:           v.GetString("path"),
		RemoteURL:      v.GetString("new"),
		Branch:         v.GetString("branch"),
		Remote:         v.GetString("remote"),
		Interval:       v.GetInt("interval"),
		Command:        v.GetString("command"),
		PrivateKeyPath: ExpandHome(v.GetString("private-key")),
		PublicKeyPath:  ExpandHome(v.GetString("public-key")),
		Username:       v.GetString("username"),
		UsePassphrase:  v.GetBool("passphrase"),
	}
	if abs, err := filepath.Abs(config.Path); err == nil {
		config.Path = abs
	}

	if err := validator.New().Struct(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ExpandHome resolves a leading ~ against the current user's home
// directory. The path is returned unchanged when it has no ~ prefix or
// the home directory cannot be determined.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
