package sql

// Statements use ? placeholders, SQLExecutor rebinds them for the database.

const (
	JUDGE_COLUMNS = `id, name, system_prompt, provider, model, active`

	INSERT_JUDGE_STATEMENT = `INSERT INTO judges (id, name, system_prompt, provider, model, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	SELECT_JUDGE_STATEMENT = `SELECT ` + JUDGE_COLUMNS + ` FROM judges WHERE id = ?;`
	UPDATE_JUDGE_STATEMENT = `UPDATE judges SET name = ?, system_prompt = ?, provider = ?, model = ?, active = ?, updated_at = ? WHERE id = ?;`

	INSERT_SUBMISSION_STATEMENT = `INSERT INTO submissions (id, queue_id, labeling_task_id, created_at_ms, raw) VALUES (?, ?, ?, ?, ?);`
	SELECT_SUBMISSIONS_STATEMENT = `SELECT id, queue_id, labeling_task_id, created_at_ms, raw FROM submissions WHERE queue_id = ? ORDER BY created_at_ms, id;`

	INSERT_QUESTION_STATEMENT = `INSERT INTO questions (submission_id, template_id, rev, question_type, question_text) VALUES (?, ?, ?, ?, ?);`
	// latest revision of every question of the submissions of a queue
	SELECT_QUESTIONS_STATEMENT = `SELECT q.submission_id, q.template_id, q.rev, q.question_type, q.question_text
FROM questions q JOIN submissions s ON s.id = q.submission_id
WHERE s.queue_id = ? AND q.rev = (SELECT MAX(q2.rev) FROM questions q2 WHERE q2.submission_id = q.submission_id AND q2.template_id = q.template_id)
ORDER BY q.submission_id, q.template_id;`
	SELECT_QUESTION_STATEMENT = `SELECT submission_id, template_id, rev, question_type, question_text FROM questions WHERE submission_id = ? AND template_id = ? ORDER BY rev DESC LIMIT 1;`

	INSERT_ANSWER_STATEMENT = `INSERT INTO answers (submission_id, template_id, choice, reasoning) VALUES (?, ?, ?, ?);`
	SELECT_ANSWER_STATEMENT = `SELECT submission_id, template_id, choice, reasoning FROM answers WHERE submission_id = ? AND template_id = ?;`

	INSERT_JUDGE_ASSIGNMENT_STATEMENT  = `INSERT INTO judge_assignments (queue_id, template_id, judge_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING;`
	SELECT_JUDGE_ASSIGNMENTS_STATEMENT = `SELECT queue_id, template_id, judge_id FROM judge_assignments WHERE queue_id = ? ORDER BY queue_id, template_id, judge_id;`

	RUN_COLUMNS = `id, queue_id, status, planned_count, completed_count, failed_count, created_at, completed_at`

	INSERT_RUN_STATEMENT = `INSERT INTO runs (id, queue_id, status, planned_count, completed_count, failed_count, created_at) VALUES (?, ?, ?, ?, 0, 0, ?);`
	SELECT_RUN_STATEMENT = `SELECT ` + RUN_COLUMNS + ` FROM runs WHERE id = ?;`
	// the guard keeps completed_count + failed_count <= planned_count under concurrent updates
	INCREMENT_RUN_COMPLETED_STATEMENT = `UPDATE runs SET completed_count = completed_count + 1 WHERE id = ? AND completed_count + failed_count < planned_count;`
	INCREMENT_RUN_FAILED_STATEMENT    = `UPDATE runs SET failed_count = failed_count + 1 WHERE id = ? AND completed_count + failed_count < planned_count;`
	FINALIZE_RUN_STATEMENT            = `UPDATE runs SET status = CASE WHEN completed_count + failed_count = planned_count THEN 'completed' ELSE 'failed' END, completed_at = ? WHERE id = ? AND status = 'running';`

	EVALUATION_COLUMNS = `id, run_id, submission_id, template_id, judge_id, verdict, reasoning, provider, model, latency_ms, error, parse_strategy, created_at`

	INSERT_EVALUATION_STATEMENT = `INSERT INTO evaluations (` + EVALUATION_COLUMNS + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (run_id, submission_id, template_id, judge_id) DO NOTHING;`
)
