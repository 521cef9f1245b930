package classifier

import (
	"fmt"
	"strings"

	"github.com/viant/taskgate/classifier/amount"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/toolbox"
)

// Rule identifiers recorded in verdicts.
const (
	RuleFinancialThreshold = "financial-threshold"
	RulePayment            = "payment-keyword"
	RuleUnknownContact     = "unknown-contact"
	RuleConfidential       = "confidential-keyword"
	RuleLegal              = "legal-keyword"
	RuleHR                 = "hr-keyword"
	RuleAfterHoursUrgency  = "after-hours-urgency"
	RuleContentPost        = "content-post"
)

// Keyword vocabularies for content-based rules.
var (
	paymentKeywords = []string{
		"payment", "pay", "paid", "transfer", "invoice", "refund",
		"reimburse", "reimbursement", "wire transfer", "deposit",
	}
	confidentialKeywords = []string{
		"confidential", "nda", "proprietary", "trade secret", "internal only",
		"restricted", "private",
	}
	legalKeywords = []string{
		"contract", "agreement", "terms and conditions", "legal", "liability",
		"indemnify", "indemnification", "lawsuit", "litigation",
	}
	hrKeywords = []string{
		"salary", "compensation", "bonus", "termination", "layoff", "firing",
		"fired", "hire", "hiring", "interview",
	}
)

// financialThresholdRule fires when any extracted amount exceeds the
// configured threshold, or when an amount cannot be normalized – an
// unreadable amount is conservatively routed to approval rather than
// silently passed.
type financialThresholdRule struct {
	threshold float64
}

func (r *financialThresholdRule) Name() string { return RuleFinancialThreshold }

func (r *financialThresholdRule) Evaluate(t *task.Task) (bool, string) {
	for _, raw := range t.Entities.Amounts {
		var value float64
		switch actual := raw.(type) {
		case string:
			parsed, err := amount.Parse(actual)
			if err != nil {
				return true, fmt.Sprintf("amount %q could not be normalized: %v", actual, err)
			}
			value = parsed
		case float64, float32, int, int64, int32, uint, uint64, uint32:
			value = toolbox.AsFloat(actual)
		default:
			return true, fmt.Sprintf("amount of type %T could not be normalized", raw)
		}
		if value > r.threshold {
			return true, fmt.Sprintf("amount %.2f exceeds threshold %.2f", value, r.threshold)
		}
	}
	return false, ""
}

// unknownContactRule fires when a contact is not present in the directory.
// When the directory is unavailable the rule fails safe: the contact is
// treated as unknown, never as known.
type unknownContactRule struct {
	directory Directory
}

func (r *unknownContactRule) Name() string { return RuleUnknownContact }

func (r *unknownContactRule) Evaluate(t *task.Task) (bool, string) {
	for _, contact := range t.Entities.Contacts {
		if r.directory == nil {
			return true, fmt.Sprintf("contacts directory unavailable; %s treated as unknown", contact)
		}
		known, err := r.directory.IsKnown(contact)
		if err != nil {
			return true, fmt.Sprintf("contacts directory lookup failed; %s treated as unknown", contact)
		}
		if !known {
			return true, fmt.Sprintf("unknown contact %s", contact)
		}
	}
	return false, ""
}

// keywordRule fires when the preview text or extracted keywords contain any
// word from its vocabulary.
type keywordRule struct {
	name     string
	keywords []string
}

func (r *keywordRule) Name() string { return r.name }

func (r *keywordRule) Evaluate(t *task.Task) (bool, string) {
	haystack := strings.ToLower(t.PreviewText + " " + strings.Join(t.Entities.Keywords, " "))
	for _, keyword := range r.keywords {
		if containsWord(haystack, keyword) {
			return true, fmt.Sprintf("matched %q", keyword)
		}
	}
	return false, ""
}

// containsWord reports whether haystack contains keyword on word boundaries;
// multi-word keywords match as phrases.
func containsWord(haystack, keyword string) bool {
	from := 0
	for {
		idx := strings.Index(haystack[from:], keyword)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end >= len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		from = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// afterHoursUrgencyRule fires for high priority tasks requested outside
// business hours – urgency arriving at 2am deserves a human look.
type afterHoursUrgencyRule struct {
	startHour int // inclusive
	endHour   int // exclusive
}

func (r *afterHoursUrgencyRule) Name() string { return RuleAfterHoursUrgency }

func (r *afterHoursUrgencyRule) Evaluate(t *task.Task) (bool, string) {
	if t.Priority != task.PriorityHigh {
		return false, ""
	}
	hour := t.RequestedAt.Hour()
	if hour < r.startHour || hour >= r.endHour {
		return true, fmt.Sprintf("high priority request at %02d:00 is outside business hours", hour)
	}
	return false, ""
}

// contentPostRule fires for every public content post – posts always require
// human approval.
type contentPostRule struct{}

func (r *contentPostRule) Name() string { return RuleContentPost }

func (r *contentPostRule) Evaluate(t *task.Task) (bool, string) {
	if t.Type == task.TypeContentPost {
		return true, "public content posts always require approval"
	}
	return false, ""
}
