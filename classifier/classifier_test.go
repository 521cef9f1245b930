package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskgate/model/task"
)

func newTask(taskType task.Type, priority task.Priority, preview string, entities task.Entities) *task.Task {
	return &task.Task{
		ID:          "t1",
		SourceRef:   "evt-1",
		Type:        taskType,
		Priority:    priority,
		PreviewText: preview,
		Entities:    entities,
		RequestedAt: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
}

func TestService_Classify(t *testing.T) {
	directory := NewStaticDirectory("alice@example.com")
	service := New(DefaultConfig(), WithDirectory(directory))

	testCases := []struct {
		name          string
		task          *task.Task
		requires      bool
		expectedRules []string
	}{
		{
			name: "payment over threshold",
			task: newTask(task.TypePaymentRequest, task.PriorityHigh, "please settle this",
				task.Entities{Amounts: []interface{}{"$1,500"}}),
			requires:      true,
			expectedRules: []string{RuleFinancialThreshold},
		},
		{
			name: "amount under threshold",
			task: newTask(task.TypeGeneric, task.PriorityMedium, "coffee fund",
				task.Entities{Amounts: []interface{}{"$25"}}),
			requires: false,
		},
		{
			name: "unparseable amount fails safe",
			task: newTask(task.TypePaymentRequest, task.PriorityMedium, "wire it",
				task.Entities{Amounts: []interface{}{"a king's ransom"}}),
			requires:      true,
			expectedRules: []string{RuleFinancialThreshold},
		},
		{
			name: "numeric amount entity",
			task: newTask(task.TypePaymentRequest, task.PriorityMedium, "",
				task.Entities{Amounts: []interface{}{float64(250)}}),
			requires:      true,
			expectedRules: []string{RuleFinancialThreshold},
		},
		{
			name: "non-numeric amount entity fails safe",
			task: newTask(task.TypeGeneric, task.PriorityMedium, "",
				task.Entities{Amounts: []interface{}{map[string]interface{}{"value": 10}}}),
			requires:      true,
			expectedRules: []string{RuleFinancialThreshold},
		},
		{
			name: "known contact auto approves",
			task: newTask(task.TypePersonalContact, task.PriorityMedium, "lunch next week?",
				task.Entities{Contacts: []string{"alice@example.com"}}),
			requires: false,
		},
		{
			name: "unknown contact",
			task: newTask(task.TypePersonalContact, task.PriorityMedium, "intro call",
				task.Entities{Contacts: []string{"mallory@example.com"}}),
			requires:      true,
			expectedRules: []string{RuleUnknownContact},
		},
		{
			name:          "legal keyword",
			task:          newTask(task.TypeContractRequest, task.PriorityMedium, "please review the liability clause", task.Entities{}),
			requires:      true,
			expectedRules: []string{RuleLegal},
		},
		{
			name:          "content post always gated",
			task:          newTask(task.TypeContentPost, task.PriorityLow, "excited to announce...", task.Entities{}),
			requires:      true,
			expectedRules: []string{RuleContentPost},
		},
		{
			name: "multiple rules all recorded",
			task: newTask(task.TypePaymentRequest, task.PriorityMedium, "confidential invoice",
				task.Entities{Amounts: []interface{}{"10K"}, Contacts: []string{"mallory@example.com"}}),
			requires:      true,
			expectedRules: []string{RuleFinancialThreshold, RulePayment, RuleUnknownContact, RuleConfidential},
		},
		{
			name:          "payment vocabulary without amount",
			task:          newTask(task.TypeGeneric, task.PriorityMedium, "please process the refund asap", task.Entities{}),
			requires:      true,
			expectedRules: []string{RulePayment},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, err := service.Classify(tc.task)
			assert.NoError(t, err)
			assert.Equal(t, tc.requires, verdict.RequiresApproval)
			assert.Equal(t, tc.expectedRules, verdict.TriggeredRules)
			if tc.requires {
				assert.NotNil(t, verdict.Deadline)
			} else {
				assert.Nil(t, verdict.Deadline)
			}
		})
	}
}

func TestService_Classify_Idempotent(t *testing.T) {
	service := New(DefaultConfig())
	aTask := newTask(task.TypePaymentRequest, task.PriorityHigh, "pay the invoice",
		task.Entities{Amounts: []interface{}{"ten thousand"}})

	first, err := service.Classify(aTask)
	assert.NoError(t, err)
	second, err := service.Classify(aTask)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestService_Classify_Deadlines(t *testing.T) {
	config := DefaultConfig()
	service := New(config)
	requestedAt := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	testCases := []struct {
		priority task.Priority
		window   time.Duration
	}{
		{priority: task.PriorityHigh, window: config.UrgentWindow},
		{priority: task.PriorityMedium, window: config.MediumWindow},
		{priority: task.PriorityLow, window: config.LowWindow},
	}
	for _, tc := range testCases {
		aTask := newTask(task.TypeContentPost, tc.priority, "post", task.Entities{})
		verdict, err := service.Classify(aTask)
		assert.NoError(t, err)
		if assert.NotNil(t, verdict.Deadline) {
			assert.Equal(t, requestedAt.Add(tc.window), *verdict.Deadline)
		}
	}
}

func TestService_Classify_AfterHours(t *testing.T) {
	service := New(DefaultConfig())
	aTask := newTask(task.TypeGeneric, task.PriorityHigh, "need this now", task.Entities{})
	aTask.RequestedAt = time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC)

	verdict, err := service.Classify(aTask)
	assert.NoError(t, err)
	assert.True(t, verdict.RequiresApproval)
	assert.Contains(t, verdict.TriggeredRules, RuleAfterHoursUrgency)
}

func TestService_Classify_DirectoryUnavailable(t *testing.T) {
	// No directory configured – contacts must be treated as unknown.
	service := New(DefaultConfig())
	aTask := newTask(task.TypePersonalContact, task.PriorityMedium, "hello",
		task.Entities{Contacts: []string{"bob@example.com"}})

	verdict, err := service.Classify(aTask)
	assert.NoError(t, err)
	assert.True(t, verdict.RequiresApproval)
	assert.Contains(t, verdict.TriggeredRules, RuleUnknownContact)
}
