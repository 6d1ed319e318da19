package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Session is one behavioral run of a mouse. Its primary key is a name built
// by the caller; the store never generates it.
type Session struct {
	Name    string `json:"name"`
	MouseID int    `json:"mouse_id"`
	Logfile string `json:"logfile"`
	BoardID *int   `json:"board_id"`
	BoxID   *int   `json:"box_id"`
	// Usually the box's port, but recorded separately because boxes can share one.
	SerialPort *string `json:"serial_port"`

	AutosketchPath string `json:"autosketch_path"`
	ScriptPath     string `json:"script_path"`
	Sandbox        string `json:"sandbox"`

	// Copied from the mouse when the session runs, so later protocol edits
	// do not rewrite history.
	PythonParamSchedulerName *string `json:"python_param_scheduler_name"`
	PythonParamStimulusSet   *string `json:"python_param_stimulus_set"`
	IRLParamStimulusArm      *string `json:"irl_param_stimulus_arm"`

	DateTimeStart *time.Time `json:"date_time_start"`
	DateTimeStop  *time.Time `json:"date_time_stop"`

	UserData
}

// UserData holds the outcome fields experimenters enter after a run.
type UserData struct {
	WaterPipePositionStart *float64  `json:"user_data_water_pipe_position_start"`
	WaterPipePositionStop  *float64  `json:"user_data_water_pipe_position_stop"`
	LeftWaterConsumption   *float64  `json:"user_data_left_water_consumption"`
	RightWaterConsumption  *float64  `json:"user_data_right_water_consumption"`
	LeftValveMean          *float64  `json:"user_data_left_valve_mean"`
	RightValveMean         *float64  `json:"user_data_right_valve_mean"`
	LeftPerf               NullFloat `json:"user_data_left_perf"`
	RightPerf              NullFloat `json:"user_data_right_perf"`
	BiasSummary            *string   `json:"user_data_bias_summary"`
	Weight                 *float64  `json:"user_data_weight"`
}

// UnstartedLabel is the display label of a session with no name yet.
const UnstartedLabel = "Unstarted"

func (s *Session) String() string {
	if s.Name == "" {
		return UnstartedLabel
	}
	return s.Name
}

// Validate checks that every required field is set.
func (s *Session) Validate() error {
	if s.MouseID == 0 {
		return &ValidationError{Entity: "session", Field: "mouse"}
	}
	return firstErr(
		required("session", "name", s.Name),
		required("session", "logfile", s.Logfile),
		required("session", "autosketch_path", s.AutosketchPath),
		required("session", "script_path", s.ScriptPath),
		required("session", "sandbox", s.Sandbox),
		optional("session", "serial_port", s.SerialPort),
		optional("session", "python_param_scheduler_name", s.PythonParamSchedulerName),
		optional("session", "python_param_stimulus_set", s.PythonParamStimulusSet),
		optional("session", "irl_param_stimulus_arm", s.IRLParamStimulusArm),
		s.UserData.Validate(),
	)
}

// Validate rejects blank text among the outcome fields.
func (u *UserData) Validate() error {
	return optional("session", "user_data_bias_summary", u.BiasSummary)
}

// BuildSessionName derives a session name from its start time, mouse and box,
// e.g. "2020-01-01_120000_mouseX_box1". The box part is left out when empty.
func BuildSessionName(start time.Time, mouse, box string) string {
	parts := []string{start.UTC().Format("2006-01-02_150405"), mouse}
	if box != "" {
		parts = append(parts, box)
	}
	return strings.Join(parts, "_")
}

// NewSession prepares an unsaved session for mouse in box on board, copying
// the run-time parameters from mouse and the serial port from box. box and
// board may be nil.
func NewSession(mouse *Mouse, box *Box, board *Board, start time.Time) *Session {
	start = start.UTC().Truncate(time.Second)
	s := &Session{
		MouseID:                  mouse.ID,
		DateTimeStart:            &start,
		PythonParamSchedulerName: strPtrOrNil(mouse.Scheduler),
		PythonParamStimulusSet:   strPtrOrNil(mouse.StimulusSet),
	}
	boxName := ""
	if box != nil {
		s.BoxID = &box.ID
		s.SerialPort = strPtrOrNil(box.SerialPort)
		boxName = box.Name
	}
	if board != nil {
		s.BoardID = &board.ID
	}
	s.Name = BuildSessionName(start, mouse.Name, boxName)
	return s
}

func strPtrOrNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

const sessionColumns = `
	name, mouse_id, logfile, board_id, box_id, serial_port,
	autosketch_path, script_path, sandbox,
	python_param_scheduler_name, python_param_stimulus_set, irl_param_stimulus_arm,
	date_time_start, date_time_stop,
	user_data_water_pipe_position_start, user_data_water_pipe_position_stop,
	user_data_left_water_consumption, user_data_right_water_consumption,
	user_data_left_valve_mean, user_data_right_valve_mean,
	user_data_left_perf, user_data_right_perf,
	user_data_bias_summary, user_data_weight`

func scanSession(row scanner) (*Session, error) {
	var s Session
	var start, stop sql.NullInt64
	err := row.Scan(
		&s.Name,
		&s.MouseID,
		&s.Logfile,
		&s.BoardID,
		&s.BoxID,
		&s.SerialPort,
		&s.AutosketchPath,
		&s.ScriptPath,
		&s.Sandbox,
		&s.PythonParamSchedulerName,
		&s.PythonParamStimulusSet,
		&s.IRLParamStimulusArm,
		&start,
		&stop,
		&s.WaterPipePositionStart,
		&s.WaterPipePositionStop,
		&s.LeftWaterConsumption,
		&s.RightWaterConsumption,
		&s.LeftValveMean,
		&s.RightValveMean,
		&s.LeftPerf,
		&s.RightPerf,
		&s.BiasSummary,
		&s.Weight,
	)
	if err != nil {
		return nil, err
	}
	s.DateTimeStart = timeFromUnix(start)
	s.DateTimeStop = timeFromUnix(stop)
	return &s, nil
}

func timeFromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func unixOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func (s *Session) args() []interface{} {
	return []interface{}{
		s.MouseID,
		s.Logfile,
		s.BoardID,
		s.BoxID,
		s.SerialPort,
		s.AutosketchPath,
		s.ScriptPath,
		s.Sandbox,
		s.PythonParamSchedulerName,
		s.PythonParamStimulusSet,
		s.IRLParamStimulusArm,
		unixOrNil(s.DateTimeStart),
		unixOrNil(s.DateTimeStop),
		s.WaterPipePositionStart,
		s.WaterPipePositionStop,
		s.LeftWaterConsumption,
		s.RightWaterConsumption,
		s.LeftValveMean,
		s.RightValveMean,
		s.LeftPerf,
		s.RightPerf,
		s.BiasSummary,
		s.Weight,
	}
}

// CreateSession stores a new session under s.Name.
func (db *DB) CreateSession(s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	args := append([]interface{}{s.Name}, s.args()...)
	_, err := db.DB.Exec(`
		INSERT INTO session (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by name.
func (db *DB) GetSession(name string) (*Session, error) {
	s, err := scanSession(db.DB.QueryRow(`SELECT `+sessionColumns+` FROM session WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, notFound("session", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (db *DB) querySessions(where string, limit int, args ...interface{}) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM session`
	if where != "" {
		query += ` WHERE ` + where
	}
	// Unstarted sessions sort last.
	query += ` ORDER BY date_time_start IS NULL, date_time_start DESC, name DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// GetAllSessions lists sessions newest first. limit <= 0 means no limit.
func (db *DB) GetAllSessions(limit int) ([]Session, error) {
	return db.querySessions("", limit)
}

// GetSessionsForMouse lists the sessions of one mouse newest first.
func (db *DB) GetSessionsForMouse(mouseID int, limit int) ([]Session, error) {
	return db.querySessions("mouse_id = ?", limit, mouseID)
}

// GetSessionsForBox lists the sessions run in one box newest first.
func (db *DB) GetSessionsForBox(boxID int, limit int) ([]Session, error) {
	return db.querySessions("box_id = ?", limit, boxID)
}

// UpdateSession overwrites every column of the session named s.Name.
func (db *DB) UpdateSession(s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	args := append(s.args(), s.Name)
	result, err := db.DB.Exec(`
		UPDATE session SET
			mouse_id = ?,
			logfile = ?,
			board_id = ?,
			box_id = ?,
			serial_port = ?,
			autosketch_path = ?,
			script_path = ?,
			sandbox = ?,
			python_param_scheduler_name = ?,
			python_param_stimulus_set = ?,
			irl_param_stimulus_arm = ?,
			date_time_start = ?,
			date_time_stop = ?,
			user_data_water_pipe_position_start = ?,
			user_data_water_pipe_position_stop = ?,
			user_data_left_water_consumption = ?,
			user_data_right_water_consumption = ?,
			user_data_left_valve_mean = ?,
			user_data_right_valve_mean = ?,
			user_data_left_perf = ?,
			user_data_right_perf = ?,
			user_data_bias_summary = ?,
			user_data_weight = ?
		WHERE name = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return checkAffected(result, "session", s.Name)
}

// StartSession records the start time of a session. It does not check that
// the session has not already started or stopped.
func (db *DB) StartSession(name string, at time.Time) error {
	result, err := db.DB.Exec(`UPDATE session SET date_time_start = ? WHERE name = ?`, at.Unix(), name)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return checkAffected(result, "session", name)
}

// StopSession records the stop time of a session.
func (db *DB) StopSession(name string, at time.Time) error {
	result, err := db.DB.Exec(`UPDATE session SET date_time_stop = ? WHERE name = ?`, at.Unix(), name)
	if err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}
	return checkAffected(result, "session", name)
}

// AnnotateSession replaces the user-entered outcome fields of a session.
func (db *DB) AnnotateSession(name string, data UserData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	result, err := db.DB.Exec(`
		UPDATE session SET
			user_data_water_pipe_position_start = ?,
			user_data_water_pipe_position_stop = ?,
			user_data_left_water_consumption = ?,
			user_data_right_water_consumption = ?,
			user_data_left_valve_mean = ?,
			user_data_right_valve_mean = ?,
			user_data_left_perf = ?,
			user_data_right_perf = ?,
			user_data_bias_summary = ?,
			user_data_weight = ?
		WHERE name = ?`,
		data.WaterPipePositionStart,
		data.WaterPipePositionStop,
		data.LeftWaterConsumption,
		data.RightWaterConsumption,
		data.LeftValveMean,
		data.RightValveMean,
		data.LeftPerf,
		data.RightPerf,
		data.BiasSummary,
		data.Weight,
		name,
	)
	if err != nil {
		return fmt.Errorf("failed to annotate session: %w", err)
	}
	return checkAffected(result, "session", name)
}

// DeleteSession removes a session by name.
func (db *DB) DeleteSession(name string) error {
	result, err := db.DB.Exec(`DELETE FROM session WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return checkAffected(result, "session", name)
}
