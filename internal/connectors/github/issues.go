package github

import (
	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/korpus/internal/normalisers/tracker"
)

// issuePayload converts an issue and its comments to the canonical
// payload shape the tracker normaliser consumes.
func issuePayload(issue *gh.Issue, comments []*gh.IssueComment) tracker.IssuePayload {
	labels := make([]string, len(issue.Labels))
	for i, l := range issue.Labels {
		labels[i] = l.GetName()
	}

	assignees := make([]string, len(issue.Assignees))
	for i, a := range issue.Assignees {
		assignees[i] = a.GetLogin()
	}

	var milestone string
	if issue.Milestone != nil {
		milestone = issue.Milestone.GetTitle()
	}

	thread := make([]tracker.CommentPayload, len(comments))
	for i, comment := range comments {
		thread[i] = tracker.CommentPayload{
			Author:    comment.GetUser().GetLogin(),
			Body:      comment.GetBody(),
			CreatedAt: comment.GetCreatedAt().Time,
		}
	}

	return tracker.IssuePayload{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		State:     issue.GetState(),
		Author:    issue.GetUser().GetLogin(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		Labels:    labels,
		Assignees: assignees,
		Milestone: milestone,
		Comments:  thread,
	}
}
