package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Mouse is an experimental subject and the protocol defaults used to run it.
type Mouse struct {
	ID                 int       `json:"id"`
	Name               string    `json:"name"`
	StimulusSet        string    `json:"stimulus_set"`
	StepFirstRotation  *int      `json:"step_first_rotation"`
	Timeout            *int      `json:"timeout"`
	Scheduler          string    `json:"scheduler"`
	MaxRewardsPerTrial *int      `json:"max_rewards_per_trial"`
	ProtocolName       string    `json:"protocol_name"`
	ScriptName         string    `json:"script_name"`
	DefaultBoard       *string   `json:"default_board"`
	DefaultBox         *string   `json:"default_box"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultMaxRewardsPerTrial is stored on create and update when
// MaxRewardsPerTrial is unset.
const DefaultMaxRewardsPerTrial = 1

func (m *Mouse) String() string { return m.Name }

// Validate checks that every required field is set.
func (m *Mouse) Validate() error {
	return firstErr(
		required("mouse", "name", m.Name),
		required("mouse", "stimulus_set", m.StimulusSet),
		present("mouse", "step_first_rotation", m.StepFirstRotation),
		required("mouse", "scheduler", m.Scheduler),
		required("mouse", "protocol_name", m.ProtocolName),
		required("mouse", "script_name", m.ScriptName),
		optional("mouse", "default_board", m.DefaultBoard),
		optional("mouse", "default_box", m.DefaultBox),
	)
}

func (m *Mouse) applyDefaults() {
	if m.MaxRewardsPerTrial == nil {
		n := DefaultMaxRewardsPerTrial
		m.MaxRewardsPerTrial = &n
	}
}

const mouseColumns = `
	id, name, stimulus_set, step_first_rotation, timeout, scheduler,
	max_rewards_per_trial, protocol_name, script_name, default_board,
	default_box, created_at, updated_at`

func scanMouse(row scanner) (*Mouse, error) {
	var m Mouse
	var createdAtUnix, updatedAtUnix int64
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.StimulusSet,
		&m.StepFirstRotation,
		&m.Timeout,
		&m.Scheduler,
		&m.MaxRewardsPerTrial,
		&m.ProtocolName,
		&m.ScriptName,
		&m.DefaultBoard,
		&m.DefaultBox,
		&createdAtUnix,
		&updatedAtUnix,
	)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = time.Unix(createdAtUnix, 0)
	m.UpdatedAt = time.Unix(updatedAtUnix, 0)
	return &m, nil
}

// CreateMouse registers a new subject.
func (db *DB) CreateMouse(m *Mouse) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.applyDefaults()

	result, err := db.DB.Exec(`
		INSERT INTO mouse (
			name, stimulus_set, step_first_rotation, timeout, scheduler,
			max_rewards_per_trial, protocol_name, script_name,
			default_board, default_box
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name,
		m.StimulusSet,
		m.StepFirstRotation,
		m.Timeout,
		m.Scheduler,
		m.MaxRewardsPerTrial,
		m.ProtocolName,
		m.ScriptName,
		m.DefaultBoard,
		m.DefaultBox,
	)
	if err != nil {
		return fmt.Errorf("failed to create mouse: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	m.ID = int(id)
	return nil
}

// GetMouse retrieves a mouse by ID.
func (db *DB) GetMouse(id int) (*Mouse, error) {
	m, err := scanMouse(db.DB.QueryRow(`SELECT `+mouseColumns+` FROM mouse WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("mouse", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mouse: %w", err)
	}
	return m, nil
}

// GetMouseByName retrieves a mouse by its unique name.
func (db *DB) GetMouseByName(name string) (*Mouse, error) {
	m, err := scanMouse(db.DB.QueryRow(`SELECT `+mouseColumns+` FROM mouse WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, notFound("mouse", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mouse: %w", err)
	}
	return m, nil
}

// GetAllMice lists every mouse ordered by name.
func (db *DB) GetAllMice() ([]Mouse, error) {
	rows, err := db.DB.Query(`SELECT ` + mouseColumns + ` FROM mouse ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mice: %w", err)
	}
	defer rows.Close()

	mice := []Mouse{}
	for rows.Next() {
		m, err := scanMouse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mouse: %w", err)
		}
		mice = append(mice, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mice: %w", err)
	}
	return mice, nil
}

// UpdateMouse overwrites every column of an existing mouse.
func (db *DB) UpdateMouse(m *Mouse) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.applyDefaults()

	result, err := db.DB.Exec(`
		UPDATE mouse SET
			name = ?,
			stimulus_set = ?,
			step_first_rotation = ?,
			timeout = ?,
			scheduler = ?,
			max_rewards_per_trial = ?,
			protocol_name = ?,
			script_name = ?,
			default_board = ?,
			default_box = ?,
			updated_at = STRFTIME('%s', 'now')
		WHERE id = ?`,
		m.Name,
		m.StimulusSet,
		m.StepFirstRotation,
		m.Timeout,
		m.Scheduler,
		m.MaxRewardsPerTrial,
		m.ProtocolName,
		m.ScriptName,
		m.DefaultBoard,
		m.DefaultBox,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mouse: %w", err)
	}
	return checkAffected(result, "mouse", m.ID)
}

// DeleteMouse removes a mouse. It fails while any session still references it.
func (db *DB) DeleteMouse(id int) error {
	result, err := db.DB.Exec(`DELETE FROM mouse WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mouse: %w", err)
	}
	return checkAffected(result, "mouse", id)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func checkAffected(result sql.Result, entity string, key interface{}) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound(entity, key)
	}
	return nil
}
