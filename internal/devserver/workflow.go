package devserver

import (
	"fmt"
	"strconv"
	"strings"
)

// MinTextLength is the shortest task text the backend accepts
const MinTextLength = 3

// MaxBatchSize is the largest number of tasks accepted in one batch
const MaxBatchSize = 50

type createdSubtask struct {
	Key   string `json:"key"`
	Phase string `json:"phase"`
	Emoji string `json:"emoji"`
	URL   string `json:"url"`
}

type workflow struct {
	MainTaskKey string           `json:"main_task_key"`
	MainTaskURL string           `json:"main_task_url"`
	ContentType string           `json:"content_type"`
	Subtasks    []createdSubtask `json:"subtasks"`
	TotalTasks  int              `json:"total_tasks"`
}

// contentType guesses Reel, Historia or Carrusel from the text
func contentType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "carrusel"), strings.Contains(lower, "carousel"):
		return "Carrusel"
	case strings.Contains(lower, "historia"), strings.Contains(lower, "story"), strings.Contains(lower, "stories"):
		return "Historia"
	default:
		return "Reel"
	}
}

// createWorkflow fakes creating a main issue plus one child per selected
// subtask. An empty selection creates every subtask; unknown ids are ignored.
func (s *Server) createWorkflow(acct *account, projectKey, text, assignee string, subtaskIDs []string) (workflow, error) {
	if len(strings.TrimSpace(text)) < MinTextLength {
		return workflow{}, fmt.Errorf("text must be at least %d characters", MinTextLength)
	}
	if s.taskHook != nil {
		if err := s.taskHook(text); err != nil {
			return workflow{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proj, ok := s.project(projectKey)
	if !ok {
		return workflow{}, fmt.Errorf("project %q not found", projectKey)
	}
	if assignee != "" && !hasUser(proj, assignee) {
		return workflow{}, fmt.Errorf("assignee %q not found in %s", assignee, projectKey)
	}

	selected := s.subtasksLocked(acct.ID)
	if len(subtaskIDs) > 0 {
		want := make(map[int]bool, len(subtaskIDs))
		for _, raw := range subtaskIDs {
			if id, err := strconv.Atoi(raw); err == nil {
				want[id] = true
			}
		}
		var filtered []*subtask
		for _, st := range selected {
			if want[st.ID] {
				filtered = append(filtered, st)
			}
		}
		selected = filtered
	}

	base := acct.JiraBaseURL
	if base == "" {
		base = DefaultJiraURL
	}

	wf := workflow{ContentType: contentType(text)}
	wf.MainTaskKey = s.nextIssueKeyLocked(projectKey)
	wf.MainTaskURL = base + "/browse/" + wf.MainTaskKey
	for _, st := range selected {
		key := s.nextIssueKeyLocked(projectKey)
		wf.Subtasks = append(wf.Subtasks, createdSubtask{
			Key:   key,
			Phase: st.Name,
			Emoji: st.Emoji,
			URL:   base + "/browse/" + key,
		})
	}
	wf.TotalTasks = 1 + len(wf.Subtasks)
	return wf, nil
}

func (s *Server) nextIssueKeyLocked(projectKey string) string {
	s.issueSeq[projectKey]++
	return fmt.Sprintf("%s-%d", projectKey, s.issueSeq[projectKey])
}

func hasUser(p Project, accountID string) bool {
	for _, u := range p.Users {
		if u.AccountID == accountID {
			return true
		}
	}
	return false
}
