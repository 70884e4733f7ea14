package catalog

import "strings"

// keywordRules are checked in order; the first rule whose words all occur in
// the lowercased title wins.
var keywordRules = []struct {
	branch Branch
	words  []string
}{
	{BranchNeuro, []string{"neuro"}},
	{BranchRestoration, []string{"restor"}},
	{BranchModel3D, []string{"3d", "model"}},
	{BranchContent, []string{"content", "social"}},
	{BranchVideoGreeting, []string{"video", "greeting"}},
}

func classifyTitle(title string) Branch {
	t := strings.ToLower(title)
	for _, rule := range keywordRules {
		if containsAll(t, rule.words) {
			return rule.branch
		}
	}
	return BranchDefault
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func (b Branch) valid() bool {
	switch b {
	case BranchNeuro, BranchRestoration, BranchModel3D, BranchContent, BranchVideoGreeting, BranchDefault:
		return true
	}
	return false
}

// TaskLabel is the summary label for the branch's free-text answer.
func (b Branch) TaskLabel() string {
	switch b {
	case BranchNeuro:
		return "Wishes"
	case BranchModel3D:
		return "Description"
	default:
		return "Task"
	}
}
