package data

// Metadata captures descriptive repository facts included in the prompt.
//
// Field order is the rendering order.
type Metadata struct {
	FullName      string   `json:"full_name,omitempty"`
	Description   string   `json:"description,omitempty"`
	DefaultBranch string   `json:"default_branch,omitempty"`
	Language      string   `json:"language,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	License       string   `json:"license,omitempty"`
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	OpenIssues    int      `json:"open_issues"`
	HTMLURL       string   `json:"html_url,omitempty"`
}

// Result is the outcome of one analysis run.
type Result struct {
	Analysis      string `json:"analysis" yaml:"analysis"`
	FilesAnalyzed int    `json:"filesAnalyzed" yaml:"filesAnalyzed"`
	Repository    string `json:"repository" yaml:"repository"`
}
