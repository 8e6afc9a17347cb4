package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment keys read by Load.
const (
	KeyGitHubToken      = "GITHUB_TOKEN"
	KeyGitHubAPIURL     = "GITHUB_API_URL"
	KeyGeminiAPIKey     = "GEMINI_API_KEY"
	KeyGeminiModel      = "GEMINI_MODEL"
	KeyGeminiBaseURL    = "GEMINI_BASE_URL"
	KeyRepositoryOwner  = "REPOSITORY_OWNER"
	KeyRepositoryName   = "REPOSITORY_NAME"
	KeyRepositoryPath   = "REPOSITORY_PATH"
	KeyRepositoryBranch = "REPOSITORY_BRANCH"
	KeyTransport        = "REPOBRIEF_TRANSPORT"
	KeyMCPCommand       = "REPOBRIEF_MCP_COMMAND"
)

const DefaultEnvFile = ".env"

type LoadOptions struct {
	// EnvFile is a dotenv file read underneath the process environment.
	// Empty means DefaultEnvFile.
	EnvFile string

	// RequireEnvFile turns a missing EnvFile into an error. Set when the
	// user named the file explicitly.
	RequireEnvFile bool
}

// Load builds a Config from defaults, the dotenv file and the process
// environment, in increasing precedence. It does not validate.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyGeminiModel, DefaultModel)
	v.SetDefault(KeyGeminiBaseURL, DefaultBaseURL)
	v.SetDefault(KeyRepositoryBranch, DefaultBranch)
	v.SetDefault(KeyTransport, TransportMCP)

	path := opts.EnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	if err := readEnvFile(v, path, opts.RequireEnvFile); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	cfg := New()
	cfg.GitHub.Token = v.GetString(KeyGitHubToken)
	cfg.GitHub.APIURL = v.GetString(KeyGitHubAPIURL)
	cfg.Generation.APIKey = v.GetString(KeyGeminiAPIKey)
	cfg.Generation.Model = v.GetString(KeyGeminiModel)
	cfg.Generation.BaseURL = v.GetString(KeyGeminiBaseURL)
	cfg.Repository.Owner = v.GetString(KeyRepositoryOwner)
	cfg.Repository.Name = v.GetString(KeyRepositoryName)
	cfg.Repository.Path = v.GetString(KeyRepositoryPath)
	cfg.Repository.Branch = v.GetString(KeyRepositoryBranch)
	cfg.Channel.Transport = v.GetString(KeyTransport)
	if raw := v.GetString(KeyMCPCommand); strings.TrimSpace(raw) != "" {
		cfg.Channel.ServerCommand, cfg.Channel.ServerArgs = SplitCommand(raw)
	}
	return cfg, nil
}

func readEnvFile(v *viper.Viper, path string, required bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("env file %s is a directory", path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	return nil
}

// SplitCommand splits a whitespace separated command line into the program
// and its arguments. Quoting is not supported.
func SplitCommand(raw string) (string, []string) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
