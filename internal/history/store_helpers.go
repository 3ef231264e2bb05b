package history

import (
	"database/sql"
	"fmt"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		scenario     string
		scenarioPath sql.NullString
		statusStr    string
		startedRaw   string
		finishedRaw  sql.NullString
		outputPath   sql.NullString
		videoSeconds sql.NullFloat64
		audioSeconds sql.NullFloat64
		outSeconds   sql.NullFloat64
		muxMode      sql.NullString
		stepsOK      int
		stepsFailed  int
		stepsSkipped int
		errorMessage sql.NullString
		reportJSON   sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&scenario,
		&scenarioPath,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&outputPath,
		&videoSeconds,
		&audioSeconds,
		&outSeconds,
		&muxMode,
		&stepsOK,
		&stepsFailed,
		&stepsSkipped,
		&errorMessage,
		&reportJSON,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:            id,
		Scenario:      scenario,
		ScenarioPath:  scenarioPath.String,
		Status:        Status(statusStr),
		OutputPath:    outputPath.String,
		VideoSeconds:  videoSeconds.Float64,
		AudioSeconds:  audioSeconds.Float64,
		OutputSeconds: outSeconds.Float64,
		MuxMode:       muxMode.String,
		StepsOK:       stepsOK,
		StepsFailed:   stepsFailed,
		StepsSkipped:  stepsSkipped,
		ErrorMessage:  errorMessage.String,
		ReportJSON:    reportJSON.String,
	}
	run.StartedAt = parseTimestamp(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTimestamp(finishedRaw.String)
	}
	return run, nil
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}
