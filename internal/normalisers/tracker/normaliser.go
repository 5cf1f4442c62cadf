// Package tracker normalises issue-tracker payloads: an issue plus its
// comment thread becomes one searchable document with the thread
// structure preserved.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// MIMETypeIssue is the content type connectors attach to issue payloads.
const MIMETypeIssue = "application/vnd.korpus.issue+json"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles issue payloads from tracker-backed sources.
type Normaliser struct{}

// New creates a tracker issue normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMETypeIssue}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeGitHub}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 95 // Source-specific priority
}

// IssuePayload is the JSON document a tracker connector emits for one
// issue and its comment thread.
type IssuePayload struct {
	Number    int              `json:"number"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	State     string           `json:"state"`
	Author    string           `json:"author"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Labels    []string         `json:"labels"`
	Assignees []string         `json:"assignees"`
	Milestone string           `json:"milestone,omitempty"`
	Comments  []CommentPayload `json:"comments"`
}

// CommentPayload is one comment in the thread.
type CommentPayload struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalise converts an issue item into a canonical document.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	var issue IssuePayload
	if err := json.Unmarshal(item.Payload, &issue); err != nil {
		return nil, fmt.Errorf("%w: parsing issue payload: %v", domain.ErrCorruptPayload, err)
	}

	content := domain.CleanText(renderIssue(&issue))
	title := fmt.Sprintf("Issue #%d: %s", issue.Number, issue.Title)

	metadata := copyMetadata(item.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["state"] = issue.State
	metadata["comment_count"] = len(issue.Comments)
	if len(issue.Labels) > 0 {
		metadata["labels"] = issue.Labels
	}

	updatedAt := issue.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = item.FetchedAt
	}

	doc := domain.Document{
		ID:          domain.DocumentID(item.SourceID, item.ExternalID),
		SourceID:    item.SourceID,
		ExternalID:  item.ExternalID,
		URI:         item.URI,
		Title:       title,
		Author:      issue.Author,
		Category:    "issue",
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    metadata,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   updatedAt,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// renderIssue lays the issue out as text with authorship preserved, so
// both keyword and semantic retrieval see who said what.
func renderIssue(issue *IssuePayload) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Issue #%d: %s\n\n", issue.Number, issue.Title))
	sb.WriteString(fmt.Sprintf("Author: @%s | State: %s", issue.Author, issue.State))
	if len(issue.Labels) > 0 {
		sb.WriteString(fmt.Sprintf(" | Labels: %s", strings.Join(issue.Labels, ", ")))
	}
	if len(issue.Assignees) > 0 {
		sb.WriteString(fmt.Sprintf(" | Assignees: @%s", strings.Join(issue.Assignees, ", @")))
	}
	if issue.Milestone != "" {
		sb.WriteString(fmt.Sprintf(" | Milestone: %s", issue.Milestone))
	}
	sb.WriteString("\n\n")

	if issue.Body != "" {
		sb.WriteString(issue.Body)
	} else {
		sb.WriteString("No description provided.")
	}
	sb.WriteString("\n\n")

	for _, comment := range issue.Comments {
		sb.WriteString(fmt.Sprintf("@%s (%s):\n%s\n\n",
			comment.Author,
			comment.CreatedAt.Format("2006-01-02 15:04"),
			comment.Body))
	}

	return sb.String()
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
