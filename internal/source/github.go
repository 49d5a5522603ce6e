package source

import (
	"encoding/json"
	"fmt"
	"strconv"

	"opssight/internal/domain"
)

// githubEventHeader carries the event type for GitHub webhook deliveries.
const githubEventHeader = "X-Github-Event"

// githubWorkflowRunEvent is the payload GitHub sends for workflow_run events.
type githubWorkflowRunEvent struct {
	Action      string             `json:"action"`
	WorkflowRun *githubWorkflowRun `json:"workflow_run"`
	Repository  *githubRepository  `json:"repository"`
}

type githubWorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HeadBranch string `json:"head_branch"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
	RunNumber  int    `json:"run_number"`
}

type githubRepository struct {
	FullName string `json:"full_name"`
}

// GitHubParser handles GitHub Actions webhooks. Only workflow_run events are
// processed; any other event type is ignored. Failed runs produce a
// high-severity alert, successful runs a resolution signal for the same run.
type GitHubParser struct{}

// NewGitHubParser creates the GitHub Actions parser.
func NewGitHubParser() *GitHubParser {
	return &GitHubParser{}
}

// Source returns the GitHub source identifier.
func (p *GitHubParser) Source() domain.Source {
	return domain.SourceGitHub
}

// Parse extracts a normalized alert from a workflow_run event.
func (p *GitHubParser) Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error) {
	if headers[githubEventHeader] != "workflow_run" {
		return nil, nil
	}

	var event githubWorkflowRunEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode github payload: %w", err)
	}

	run := event.WorkflowRun
	if run == nil || run.Name == "" {
		return nil, nil
	}

	// Only completed runs carry a conclusion worth alerting on.
	if event.Action != "" && event.Action != "completed" {
		return nil, nil
	}

	repo := ""
	if event.Repository != nil {
		repo = event.Repository.FullName
	}

	failed := run.Conclusion == "failure" || run.Conclusion == "timed_out" || run.Conclusion == "startup_failure"

	alert := &domain.NormalizedAlert{
		Source:     domain.SourceGitHub,
		Category:   domain.CategoryCICD,
		ExternalID: strconv.FormatInt(run.ID, 10),
		URL:        run.HTMLURL,
		Resolved:   !failed,
		Tags: map[string]any{
			"repository": repo,
			"workflow":   run.Name,
			"branch":     run.HeadBranch,
			"conclusion": run.Conclusion,
		},
	}

	if failed {
		alert.Title = fmt.Sprintf("Workflow failed: %s", run.Name)
		alert.Description = fmt.Sprintf("Workflow %q (run #%d) on %s concluded with %s", run.Name, run.RunNumber, repo, run.Conclusion)
		alert.Severity = domain.SeverityHigh
	} else {
		alert.Title = fmt.Sprintf("Workflow succeeded: %s", run.Name)
		alert.Description = fmt.Sprintf("Workflow %q (run #%d) on %s concluded with %s", run.Name, run.RunNumber, repo, run.Conclusion)
		alert.Severity = domain.SeverityLow
	}

	alert.Normalize()
	return []*domain.NormalizedAlert{alert}, nil
}
