package api

import "encoding/json"

// Submission is one labelled item in a queue. A submission carries many
// question/answer pairs joined by template id.
type Submission struct {
	ID             string          `json:"id"`
	QueueID        string          `json:"queueId"`
	LabelingTaskID string          `json:"labelingTaskId"`
	CreatedAtMs    int64           `json:"createdAtMs"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

type Question struct {
	SubmissionID string `json:"submissionId"`
	TemplateID   string `json:"templateId"`
	Rev          int    `json:"rev"`
	QuestionType string `json:"questionType"`
	QuestionText string `json:"questionText"`
}

// Answer is the labeller's answer to a question instance. Both fields are
// optional.
type Answer struct {
	SubmissionID string `json:"submissionId"`
	TemplateID   string `json:"templateId"`
	Choice       string `json:"choice,omitempty"`
	Reasoning    string `json:"reasoning,omitempty"`
}

// JudgeAssignment declares which judge evaluates which question template within a queue.
type JudgeAssignment struct {
	QueueID    string `json:"queueId"`
	TemplateID string `json:"templateId"`
	JudgeID    string `json:"judgeId"`
}
