package syncer

import (
	"fmt"
	"strings"

	"rapports-sync/internal/common"
)

// NoComment is the sentinel used when a worklog has no comment text. Rule
// comment overrides only apply to entries still carrying this sentinel.
const NoComment = "No comment"

// Engine maps (issue key, PEP field, comment) to a final PEP value and
// comment by interpreting an ordered rule table. It is a pure function of
// its inputs; the table is fixed at construction.
type Engine struct {
	rules []common.Rule
}

func NewEngine(rules []common.Rule) *Engine {
	return &Engine{rules: rules}
}

// Resolve applies the first rule whose prefix matches issueKey. The
// matched rule's result (or fallback, when its condition fails) overrides
// the PEP value, and the comment is prefixed with the issue key. When no
// prefix matches, both values pass through untouched.
func (e *Engine) Resolve(issueKey, pepField, comment string) (pep, finalComment string) {
	pep = pepField
	finalComment = comment

	for _, rule := range e.rules {
		if !strings.HasPrefix(issueKey, rule.Prefix) {
			continue
		}

		if conditionMet(rule.Condition, pepField, comment) {
			if rule.Result.PEP != "" {
				pep = rule.Result.PEP
			}
			if rule.Result.Comment != "" && comment == NoComment {
				finalComment = rule.Result.Comment
			}
		} else if rule.Fallback != nil {
			if rule.Fallback.PEP != "" {
				pep = rule.Fallback.PEP
			}
		}

		// example comment: [FA-20] something something
		finalComment = fmt.Sprintf("[%s] \n%s", issueKey, finalComment)
		break
	}

	return pep, finalComment
}

// conditionMet evaluates a rule condition against the original fetched
// field and comment. A nil condition always passes; otherwise any single
// matching check satisfies it.
func conditionMet(cond *common.RuleCondition, pepField, comment string) bool {
	if cond == nil {
		return true
	}

	if cond.OrFieldEmpty && len(pepField) == 0 {
		return true
	}

	upperField := strings.ToUpper(pepField)
	for _, substr := range cond.FieldContains {
		if strings.Contains(upperField, strings.ToUpper(substr)) {
			return true
		}
	}

	lowerComment := strings.ToLower(comment)
	for _, substr := range cond.CommentContains {
		if strings.Contains(lowerComment, strings.ToLower(substr)) {
			return true
		}
	}

	return false
}
