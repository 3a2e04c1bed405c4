package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
	"medtrack/internal/ports/storage"
)

// Dialect cubre lo poco que cambia entre SQLite y Postgres.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// rebind convierte placeholders "?" a "$n" para Postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var (
		sb strings.Builder
		n  int
	)
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// forUpdate bloquea la fila leída hasta el fin de la transacción. SQLite no
// lo necesita: usa una sola conexión y la transacción ya es exclusiva.
func (d Dialect) forUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// Store implementa storage.EventStore sobre database/sql.
// El schedule se guarda como documento JSON; los eventos van en columnas
// para que el índice único (medication_id, scheduled_time, taken) lo haga cumplir la base.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ storage.EventStore = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ListSchedules(ctx context.Context) ([]medications.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM schedules ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	out := make([]medications.Schedule, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("list schedules: scan: %w", err)
		}
		var sched medications.Schedule
		if err := json.Unmarshal([]byte(data), &sched); err != nil {
			return nil, fmt.Errorf("list schedules: decode: %w", err)
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func (s *Store) GetSchedule(ctx context.Context, id string) (medications.Schedule, error) {
	return getSchedule(ctx, s.db, s.dialect.rebind(`SELECT data FROM schedules WHERE id = ?`), id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lockSchedule lee el schedule dentro de tx bloqueando la fila.
func (s *Store) lockSchedule(ctx context.Context, tx *sql.Tx, id string) (medications.Schedule, error) {
	return getSchedule(ctx, tx, s.dialect.rebind(`SELECT data FROM schedules WHERE id = ?`+s.dialect.forUpdate()), id)
}

func getSchedule(ctx context.Context, q queryRower, query, id string) (medications.Schedule, error) {
	var data string
	err := q.QueryRowContext(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.Schedule{}, storage.ErrNotFound
		}
		return medications.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	var sched medications.Schedule
	if err := json.Unmarshal([]byte(data), &sched); err != nil {
		return medications.Schedule{}, fmt.Errorf("get schedule: decode: %w", err)
	}
	return sched, nil
}

func (s *Store) UpsertSchedule(ctx context.Context, sched medications.Schedule) error {
	if strings.TrimSpace(sched.ID) == "" {
		return errors.New("schedule id required")
	}
	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("upsert schedule: encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO schedules (id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`), sched.ID, string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// UpdateSchedule relee la fila con bloqueo, aplica fn y la reescribe en la
// misma transacción.
func (s *Store) UpdateSchedule(ctx context.Context, id string, fn func(*medications.Schedule) error) (medications.Schedule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return medications.Schedule{}, fmt.Errorf("update schedule: begin tx: %w", err)
	}
	defer tx.Rollback()

	sched, err := s.lockSchedule(ctx, tx, id)
	if err != nil {
		return medications.Schedule{}, err
	}
	if err := fn(&sched); err != nil {
		return medications.Schedule{}, err
	}
	sched.ID = id
	if err := s.writeSchedule(ctx, tx, sched); err != nil {
		return medications.Schedule{}, fmt.Errorf("update schedule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return medications.Schedule{}, fmt.Errorf("update schedule: commit: %w", err)
	}
	return sched, nil
}

func (s *Store) writeSchedule(ctx context.Context, tx *sql.Tx, sched medications.Schedule) error {
	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.dialect.rebind(`UPDATE schedules SET data = ?, updated_at = ? WHERE id = ?`),
		string(data), formatTime(time.Now()), sched.ID)
	return err
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM schedules WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const eventColumns = `id, medication_id, ts, taken, scheduled_time, source`

func (s *Store) ListEvents(ctx context.Context) ([]doses.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM dose_events ORDER BY seq`)
}

func (s *Store) ListEventsByMedication(ctx context.Context, medicationID string) ([]doses.Event, error) {
	return s.queryEvents(ctx, s.dialect.rebind(`SELECT `+eventColumns+` FROM dose_events WHERE medication_id = ? ORDER BY seq`), medicationID)
}

func (s *Store) queryEvents(ctx context.Context, q string, args ...any) ([]doses.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]doses.Event, 0)
	for rows.Next() {
		var (
			e         doses.Event
			ts        string
			taken     int
			scheduled sql.NullString
			source    string
		)
		if err := rows.Scan(&e.ID, &e.MedicationID, &ts, &taken, &scheduled, &source); err != nil {
			return nil, fmt.Errorf("list events: scan: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		if scheduled.Valid {
			st, err := parseTime(scheduled.String)
			if err != nil {
				return nil, fmt.Errorf("list events: %w", err)
			}
			e.ScheduledTime = &st
		}
		e.Taken = taken != 0
		e.Source = doses.Source(source)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendEvent inserta el evento y, si es una toma, descuenta stock en la misma
// transacción con la fila del schedule bloqueada.
func (s *Store) AppendEvent(ctx context.Context, e doses.Event) error {
	if e.ID == "" || e.MedicationID == "" {
		return errors.New("event id and medication id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append event: begin tx: %w", err)
	}
	defer tx.Rollback()

	var scheduled any
	if e.ScheduledTime != nil {
		scheduled = formatTime(*e.ScheduledTime)
	}
	taken := 0
	if e.Taken {
		taken = 1
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO dose_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`), e.ID, e.MedicationID, formatTime(e.Timestamp), taken, scheduled, string(e.Source.OrDefault()))
	if err != nil {
		return fmt.Errorf("append event: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append event: rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrDuplicateEvent
	}

	if e.Taken {
		if err := s.consumeDose(ctx, tx, e.MedicationID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append event: commit: %w", err)
	}
	return nil
}

func (s *Store) consumeDose(ctx context.Context, tx *sql.Tx, medicationID string) error {
	sched, err := s.lockSchedule(ctx, tx, medicationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("append event: %w", err)
	}
	if !sched.ConsumeDose() {
		return nil
	}
	if err := s.writeSchedule(ctx, tx, sched); err != nil {
		return fmt.Errorf("append event: update supply: %w", err)
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM dose_events`, `DELETE FROM schedules`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}
	return tx.Commit()
}

// Los instantes se guardan como texto RFC3339Nano en UTC para que la
// comparación del índice único sea exacta en ambos motores.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
