package receipts

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const receiptColumns = "run_id, formula, version, source_kind, prefix, build_type, configure_args_json, status, failed_step, error_message, started_at, finished_at"

func scanReceipt(scanner interface{ Scan(dest ...any) error }) (Receipt, error) {
	var (
		runID       string
		formula     string
		version     string
		sourceKind  string
		prefix      string
		buildType   string
		argsJSON    sql.NullString
		status      string
		failedStep  sql.NullString
		errMessage  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&runID,
		&formula,
		&version,
		&sourceKind,
		&prefix,
		&buildType,
		&argsJSON,
		&status,
		&failedStep,
		&errMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Receipt{}, err
	}

	r := Receipt{
		RunID:        runID,
		Formula:      formula,
		Version:      version,
		SourceKind:   sourceKind,
		Prefix:       prefix,
		BuildType:    buildType,
		Status:       Status(status),
		FailedStep:   failedStep.String,
		ErrorMessage: errMessage.String,
	}
	if argsJSON.Valid && argsJSON.String != "" {
		if err := json.Unmarshal([]byte(argsJSON.String), &r.ConfigureArgs); err != nil {
			return Receipt{}, fmt.Errorf("decode configure args: %w", err)
		}
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		r.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			r.FinishedAt = &finished
		}
	}
	return r, nil
}

func encodeArgs(args []string) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode configure args: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
