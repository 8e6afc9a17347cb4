package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultModel         = "gemini-1.5-flash-latest"
	DefaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultBranch        = "main"
	DefaultServerCommand = "npx"

	TransportMCP  = "mcp"
	TransportREST = "rest"

	APIKeyURL = "https://makersuite.google.com/app/apikey"
)

var (
	transports     = []string{TransportMCP, TransportREST}
	consoleFormats = []string{"text", "json"}
	outFormats     = []string{"json", "yaml", "markdown"}
)

// DefaultServerArgs launches the reference GitHub MCP server.
var DefaultServerArgs = []string{"-y", "@modelcontextprotocol/server-github"}

type Config struct {
	// MAINTAINER NOTE: keep these in sync when fields change:
	// - env keys in load.go
	// - CLI flags in internal/cli/analyze.go
	Repository Repository
	GitHub     GitHub
	Generation Generation
	Channel    Channel
	Output     Output
	Runtime    Runtime
}

type Repository struct {
	// Owner is the account that owns the repository (REPOSITORY_OWNER, --owner).
	Owner string

	// Name is the repository name (REPOSITORY_NAME, --repo).
	Name string

	// Path is the subtree to analyze; empty means the repository root
	// (REPOSITORY_PATH, --path).
	Path string

	// Branch is the ref files are read from (REPOSITORY_BRANCH, --branch).
	Branch string
}

type GitHub struct {
	// Token authenticates the tool channel (GITHUB_TOKEN, or `gh auth token`).
	Token string

	// APIURL overrides the REST API base URL for the rest transport
	// (GITHUB_API_URL). Empty means api.github.com.
	APIURL string
}

type Generation struct {
	// APIKey authenticates the model endpoint (GEMINI_API_KEY).
	APIKey string

	// Model is the model name (GEMINI_MODEL, --model).
	Model string

	// BaseURL is the OpenAI-compatible endpoint (GEMINI_BASE_URL).
	BaseURL string
}

type Channel struct {
	// Transport selects the tool channel (REPOBRIEF_TRANSPORT, --transport).
	// Allowed values: mcp, rest.
	Transport string

	// ServerCommand and ServerArgs start the MCP server child process
	// (REPOBRIEF_MCP_COMMAND, --mcp-command). Ignored for rest.
	ServerCommand string
	ServerArgs    []string
}

type Output struct {
	// ConsoleFormat controls the console sink (see --console-format).
	// Allowed values: text, json.
	ConsoleFormat string

	// Out writes the result to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, yaml, markdown. If empty, it is inferred from the --out extension.
	OutFormat string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Verbose enables debug logging.
	Verbose bool

	// Timeout bounds the whole run (see --timeout). 0 means no limit.
	Timeout time.Duration

	// CreateIssue opens an issue with the analysis on the target repository
	// (see --create-issue).
	CreateIssue bool
}

func New() *Config {
	return &Config{
		Repository: Repository{
			Branch: DefaultBranch,
		},
		Generation: Generation{
			Model:   DefaultModel,
			BaseURL: DefaultBaseURL,
		},
		Channel: Channel{
			Transport:     TransportMCP,
			ServerCommand: DefaultServerCommand,
			ServerArgs:    append([]string(nil), DefaultServerArgs...),
		},
		Output: Output{
			ConsoleFormat: "text",
		},
	}
}

// ValidationError lists every configuration problem found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate normalizes c in place and reports every problem at once.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateChannel is Validate for commands that only talk to the tool
// channel: the model key and target repository are not required.
func (c *Config) ValidateChannel() error {
	return c.validate(false)
}

func (c *Config) validate(full bool) error {
	var problems []string

	c.Repository.Owner = strings.TrimSpace(c.Repository.Owner)
	c.Repository.Name = strings.TrimSpace(c.Repository.Name)
	c.Repository.Path = strings.Trim(strings.TrimSpace(c.Repository.Path), "/")
	c.Repository.Branch = strings.TrimSpace(c.Repository.Branch)
	if c.Repository.Branch == "" {
		c.Repository.Branch = DefaultBranch
	}

	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	c.GitHub.APIURL = strings.TrimSpace(c.GitHub.APIURL)
	c.Generation.APIKey = strings.TrimSpace(c.Generation.APIKey)
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	if c.Generation.Model == "" {
		c.Generation.Model = DefaultModel
	}
	c.Generation.BaseURL = strings.TrimSpace(c.Generation.BaseURL)
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = DefaultBaseURL
	}

	if c.GitHub.Token == "" {
		problems = append(problems, "GITHUB_TOKEN is required in .env file (or log in with `gh auth login`)")
	}
	if full && c.Generation.APIKey == "" {
		problems = append(problems, "GEMINI_API_KEY is required in .env file")
		problems = append(problems, "Get your free API key at: "+APIKeyURL)
	}
	if full && c.Repository.Owner == "" {
		problems = append(problems, "REPOSITORY_OWNER (or --owner) is required")
	}
	if full && c.Repository.Name == "" {
		problems = append(problems, "REPOSITORY_NAME (or --repo) is required")
	}
	if strings.Contains(c.Repository.Owner, "/") {
		problems = append(problems, fmt.Sprintf("invalid repository owner %q", c.Repository.Owner))
	}
	if strings.Contains(c.Repository.Name, "/") {
		problems = append(problems, fmt.Sprintf("invalid repository name %q", c.Repository.Name))
	}

	c.Channel.Transport = normalizeEnumValue(c.Channel.Transport)
	if c.Channel.Transport == "" {
		c.Channel.Transport = TransportMCP
	}
	if !lo.Contains(transports, c.Channel.Transport) {
		problems = append(problems, fmt.Sprintf("unsupported --transport: %s (must be one of: mcp, rest)", c.Channel.Transport))
	}
	c.Channel.ServerCommand = strings.TrimSpace(c.Channel.ServerCommand)
	if c.Channel.Transport == TransportMCP && c.Channel.ServerCommand == "" {
		problems = append(problems, "--mcp-command must not be empty")
	}

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if !lo.Contains(consoleFormats, c.Output.ConsoleFormat) {
		problems = append(problems, fmt.Sprintf("unsupported --console-format: %s (must be one of: text, json)", c.Output.ConsoleFormat))
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".yaml", ".yml":
				c.Output.OutFormat = "yaml"
			case ".md", ".markdown":
				c.Output.OutFormat = "markdown"
			case "":
				problems = append(problems, "cannot infer output format from file extension (missing extension); use --out-format")
			default:
				problems = append(problems, fmt.Sprintf("cannot infer output format from file extension %q; use --out-format", ext))
			}
		} else if !lo.Contains(outFormats, c.Output.OutFormat) {
			problems = append(problems, fmt.Sprintf("unsupported output format: %s (must be one of: %s)", c.Output.OutFormat, strings.Join(outFormats, ", ")))
		}
	}

	if c.Runtime.Timeout < 0 {
		problems = append(problems, "--timeout must be >= 0")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
