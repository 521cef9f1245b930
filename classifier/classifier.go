package classifier

import (
	"time"

	"github.com/viant/taskgate/model/task"
)

// Config controls rule thresholds and decision SLA windows.
type Config struct {
	// FinancialThreshold is the base-currency amount above which the
	// financial rule fires.
	FinancialThreshold float64 `json:"financialThreshold" yaml:"financialThreshold"`

	// BusinessHoursStart/End bound the after-hours urgency rule (hours,
	// half-open interval).
	BusinessHoursStart int `json:"businessHoursStart" yaml:"businessHoursStart"`
	BusinessHoursEnd   int `json:"businessHoursEnd" yaml:"businessHoursEnd"`

	// Decision SLA windows by priority.
	UrgentWindow time.Duration `json:"urgentWindow" yaml:"urgentWindow"`
	MediumWindow time.Duration `json:"mediumWindow" yaml:"mediumWindow"`
	LowWindow    time.Duration `json:"lowWindow" yaml:"lowWindow"`
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		FinancialThreshold: 100,
		BusinessHoursStart: 9,
		BusinessHoursEnd:   18,
		UrgentWindow:       5 * time.Minute,
		MediumWindow:       time.Hour,
		LowWindow:          24 * time.Hour,
	}
}

// Service evaluates the ordered rule set and derives verdicts.
type Service struct {
	config Config
	rules  []Rule
}

// Option customises the classifier.
type Option func(*Service)

// WithDirectory sets the contacts directory used by the unknown-contact rule.
func WithDirectory(directory Directory) Option {
	return func(s *Service) {
		for i, rule := range s.rules {
			if contactRule, ok := rule.(*unknownContactRule); ok {
				contactRule.directory = directory
				s.rules[i] = contactRule
			}
		}
	}
}

// WithRules replaces the default rule set; evaluation order follows slice
// order.
func WithRules(rules ...Rule) Option {
	return func(s *Service) { s.rules = rules }
}

// New creates a classifier with the default rule set.
func New(config Config, options ...Option) *Service {
	s := &Service{
		config: config,
		rules: []Rule{
			&financialThresholdRule{threshold: config.FinancialThreshold},
			&keywordRule{name: RulePayment, keywords: paymentKeywords},
			&unknownContactRule{},
			&keywordRule{name: RuleConfidential, keywords: confidentialKeywords},
			&keywordRule{name: RuleLegal, keywords: legalKeywords},
			&keywordRule{name: RuleHR, keywords: hrKeywords},
			&afterHoursUrgencyRule{startHour: config.BusinessHoursStart, endHour: config.BusinessHoursEnd},
			&contentPostRule{},
		},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Classify evaluates every rule independently and aggregates the verdict:
// approval is required when any rule fires, and every fired rule is
// recorded.  The decision deadline derives from the task's priority and
// request time, so classification remains a pure function of task
// attributes.
func (s *Service) Classify(t *task.Task) (*task.Verdict, error) {
	if t == nil {
		return nil, task.ErrValidation
	}
	verdict := &task.Verdict{}
	for _, rule := range s.rules {
		fired, reason := rule.Evaluate(t)
		if !fired {
			continue
		}
		verdict.RequiresApproval = true
		verdict.TriggeredRules = append(verdict.TriggeredRules, rule.Name())
		verdict.Reasons = append(verdict.Reasons, reason)
	}
	if verdict.RequiresApproval {
		deadline := t.RequestedAt.Add(s.window(t.Priority))
		verdict.Deadline = &deadline
	}
	return verdict, nil
}

func (s *Service) window(priority task.Priority) time.Duration {
	switch priority {
	case task.PriorityHigh:
		return s.config.UrgentWindow
	case task.PriorityLow:
		return s.config.LowWindow
	default:
		return s.config.MediumWindow
	}
}
