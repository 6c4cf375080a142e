package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"finwiz/internal/crew"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

// TaskLogRow is one task execution record in the audit log.
type TaskLogRow struct {
	RunID      string    `ch:"run_id"`
	Crew       string    `ch:"crew"`
	TaskID     string    `ch:"task_id"`
	State      string    `ch:"state"`
	Attempts   uint8     `ch:"attempts"`
	DurationMs uint64    `ch:"duration_ms"`
	Error      string    `ch:"error"`
	FinishedAt time.Time `ch:"finished_at"`
}

// RunLog stores task execution history in ClickHouse. It implements
// crew.RunObserver; write failures are logged, never propagated into the run.
type RunLog struct {
	conn driver.Conn
	log  *logger.Logger
}

// NewRunLog creates the task execution audit log.
func NewRunLog(conn driver.Conn) *RunLog {
	return &RunLog{
		conn: conn,
		log:  logger.Get().With("component", "run_log"),
	}
}

// RunStarted is a no-op; the log is per task.
func (r *RunLog) RunStarted(ctx context.Context, run *crew.Run) {}

// TaskFinished appends one task execution record.
func (r *RunLog) TaskFinished(ctx context.Context, run *crew.Run, result *crew.TaskResult) {
	row := TaskLogRow{
		RunID:      run.ID.String(),
		Crew:       run.Crew,
		TaskID:     result.TaskID,
		State:      string(result.State),
		Attempts:   uint8(result.Attempts),
		DurationMs: uint64(result.Duration.Milliseconds()),
		FinishedAt: time.Now().UTC(),
	}
	if result.Err != nil {
		row.Error = result.Err.Error()
	}

	if err := r.insert(ctx, row); err != nil {
		r.log.Warnf("Failed to log task execution %s/%s: %v", run.Crew, result.TaskID, err)
	}
}

// RunFinished is a no-op; the log is per task.
func (r *RunLog) RunFinished(ctx context.Context, run *crew.Run) {}

func (r *RunLog) insert(ctx context.Context, row TaskLogRow) error {
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO task_executions")
	if err != nil {
		return errors.Wrap(err, "prepare task execution insert")
	}
	if err := batch.AppendStruct(&row); err != nil {
		return errors.Wrap(err, "append task execution row")
	}
	return batch.Send()
}

// History returns the most recent task executions for a crew.
func (r *RunLog) History(ctx context.Context, crewName string, limit int) ([]TaskLogRow, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []TaskLogRow
	query := `
		SELECT run_id, crew, task_id, state, attempts, duration_ms, error, finished_at
		FROM task_executions
		WHERE crew = ?
		ORDER BY finished_at DESC
		LIMIT ?`
	if err := r.conn.Select(ctx, &rows, query, crewName, limit); err != nil {
		return nil, errors.Wrap(err, "query task executions")
	}
	return rows, nil
}
