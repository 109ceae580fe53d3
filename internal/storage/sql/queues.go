package sql

import (
	"database/sql"
	"encoding/json"

	"github.com/ai-judge/ai-judge/pkg/api"
)

func (s *SQLStorage) CreateSubmission(submission *api.Submission) error {
	_, err := s.executor(nil).Exec(INSERT_SUBMISSION_STATEMENT, submission.ID, submission.QueueID, submission.LabelingTaskID, submission.CreatedAtMs, nullableString(string(submission.Raw)))
	if err != nil {
		return databaseError("create submission", submission.ID, err)
	}
	return nil
}

func (s *SQLStorage) CreateQuestion(question *api.Question) error {
	_, err := s.executor(nil).Exec(INSERT_QUESTION_STATEMENT, question.SubmissionID, question.TemplateID, question.Rev, question.QuestionType, question.QuestionText)
	if err != nil {
		return databaseError("create question", question.SubmissionID+"/"+question.TemplateID, err)
	}
	return nil
}

func (s *SQLStorage) CreateAnswer(answer *api.Answer) error {
	_, err := s.executor(nil).Exec(INSERT_ANSWER_STATEMENT, answer.SubmissionID, answer.TemplateID, answer.Choice, answer.Reasoning)
	if err != nil {
		return databaseError("create answer", answer.SubmissionID+"/"+answer.TemplateID, err)
	}
	return nil
}

func (s *SQLStorage) CreateJudgeAssignment(assignment *api.JudgeAssignment) error {
	_, err := s.executor(nil).Exec(INSERT_JUDGE_ASSIGNMENT_STATEMENT, assignment.QueueID, assignment.TemplateID, assignment.JudgeID)
	if err != nil {
		return databaseError("create judge assignment", assignment.QueueID+"/"+assignment.TemplateID+"/"+assignment.JudgeID, err)
	}
	return nil
}

func (s *SQLStorage) GetSubmissions(queueID string) ([]api.Submission, error) {
	rows, err := s.executor(nil).Query(SELECT_SUBMISSIONS_STATEMENT, queueID)
	if err != nil {
		return nil, databaseError("list submissions", queueID, err)
	}
	defer rows.Close()

	submissions := make([]api.Submission, 0)
	for rows.Next() {
		var submission api.Submission
		var raw sql.NullString
		if err := rows.Scan(&submission.ID, &submission.QueueID, &submission.LabelingTaskID, &submission.CreatedAtMs, &raw); err != nil {
			return nil, databaseError("list submissions", queueID, err)
		}
		if raw.Valid && raw.String != "" {
			submission.Raw = json.RawMessage(raw.String)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list submissions", queueID, err)
	}
	return submissions, nil
}

func (s *SQLStorage) GetQuestions(queueID string) ([]api.Question, error) {
	rows, err := s.executor(nil).Query(SELECT_QUESTIONS_STATEMENT, queueID)
	if err != nil {
		return nil, databaseError("list questions", queueID, err)
	}
	defer rows.Close()

	questions := make([]api.Question, 0)
	for rows.Next() {
		var question api.Question
		if err := rows.Scan(&question.SubmissionID, &question.TemplateID, &question.Rev, &question.QuestionType, &question.QuestionText); err != nil {
			return nil, databaseError("list questions", queueID, err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list questions", queueID, err)
	}
	return questions, nil
}

func (s *SQLStorage) GetJudgeAssignments(queueID string) ([]api.JudgeAssignment, error) {
	rows, err := s.executor(nil).Query(SELECT_JUDGE_ASSIGNMENTS_STATEMENT, queueID)
	if err != nil {
		return nil, databaseError("list judge assignments", queueID, err)
	}
	defer rows.Close()

	assignments := make([]api.JudgeAssignment, 0)
	for rows.Next() {
		var assignment api.JudgeAssignment
		if err := rows.Scan(&assignment.QueueID, &assignment.TemplateID, &assignment.JudgeID); err != nil {
			return nil, databaseError("list judge assignments", queueID, err)
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list judge assignments", queueID, err)
	}
	return assignments, nil
}

func (s *SQLStorage) GetQuestion(submissionID string, templateID string) (*api.Question, error) {
	var question api.Question
	err := s.executor(nil).QueryRow(SELECT_QUESTION_STATEMENT, submissionID, templateID).Scan(&question.SubmissionID, &question.TemplateID, &question.Rev, &question.QuestionType, &question.QuestionText)
	if err != nil {
		return nil, queryError("question", submissionID+"/"+templateID, err)
	}
	return &question, nil
}

func (s *SQLStorage) GetAnswer(submissionID string, templateID string) (*api.Answer, error) {
	var answer api.Answer
	err := s.executor(nil).QueryRow(SELECT_ANSWER_STATEMENT, submissionID, templateID).Scan(&answer.SubmissionID, &answer.TemplateID, &answer.Choice, &answer.Reasoning)
	if err != nil {
		return nil, queryError("answer", submissionID+"/"+templateID, err)
	}
	return &answer, nil
}
