package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Board describes the controller board of a box and the parameters compiled
// into its sketch.
type Board struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	HasSideHESensor   *bool     `json:"has_side_he_sensor"`
	LIRDetectorThresh *int      `json:"l_ir_detector_thresh"`
	RIRDetectorThresh *int      `json:"r_ir_detector_thresh"`
	UseIRDetector     *bool     `json:"use_ir_detector"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Compiled into the sketch; see CParameters.
	StepperDriver          *int  `json:"stepper_driver"`
	SideHESensorThresh     *int  `json:"side_he_sensor_thresh"`
	Microstep              *int  `json:"microstep"`
	InvertStepperDirection *bool `json:"invert_stepper_direction"`
}

func (b *Board) String() string { return b.Name }

// Validate checks that every required field is set.
func (b *Board) Validate() error {
	return firstErr(
		required("board", "name", b.Name),
		present("board", "has_side_he_sensor", b.HasSideHESensor),
	)
}

// C parameter names as they appear in the generated sketch header.
const (
	CParamUseIRDetector          = "USE_IR_DETECTOR"
	CParamStepperDriver          = "STEPPER_DRIVER"
	CParamSideHESensorThresh     = "SIDE_HE_SENSOR_THRESH"
	CParamMicrostep              = "MICROSTEP"
	CParamInvertStepperDirection = "INVERT_STEPPER_DIRECTION"
)

// CParameters returns the set C parameters as the literal tokens the sketch
// generator writes: booleans become "1" or "0" and integers are decimal.
// Unset parameters are omitted.
func (b *Board) CParameters() map[string]string {
	params := make(map[string]string)
	putBool := func(name string, v *bool) {
		if v == nil {
			return
		}
		if *v {
			params[name] = "1"
		} else {
			params[name] = "0"
		}
	}
	putInt := func(name string, v *int) {
		if v != nil {
			params[name] = strconv.Itoa(*v)
		}
	}

	putBool(CParamUseIRDetector, b.UseIRDetector)
	putInt(CParamStepperDriver, b.StepperDriver)
	putInt(CParamSideHESensorThresh, b.SideHESensorThresh)
	putInt(CParamMicrostep, b.Microstep)
	putBool(CParamInvertStepperDirection, b.InvertStepperDirection)
	return params
}

const boardColumns = `
	id, name, has_side_he_sensor, l_ir_detector_thresh, r_ir_detector_thresh,
	use_ir_detector, stepper_driver, side_he_sensor_thresh, microstep,
	invert_stepper_direction, created_at, updated_at`

func scanBoard(row scanner) (*Board, error) {
	var b Board
	var hasSideHE bool
	var useIR, invert sql.NullBool
	var createdAtUnix, updatedAtUnix int64
	err := row.Scan(
		&b.ID,
		&b.Name,
		&hasSideHE,
		&b.LIRDetectorThresh,
		&b.RIRDetectorThresh,
		&useIR,
		&b.StepperDriver,
		&b.SideHESensorThresh,
		&b.Microstep,
		&invert,
		&createdAtUnix,
		&updatedAtUnix,
	)
	if err != nil {
		return nil, err
	}
	b.HasSideHESensor = &hasSideHE
	b.UseIRDetector = boolPtrFromNull(useIR)
	b.InvertStepperDirection = boolPtrFromNull(invert)
	b.CreatedAt = time.Unix(createdAtUnix, 0)
	b.UpdatedAt = time.Unix(updatedAtUnix, 0)
	return &b, nil
}

func boolPtrFromNull(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func nullableBoolInt(v *bool) interface{} {
	if v == nil {
		return nil
	}
	if *v {
		return 1
	}
	return 0
}

// CreateBoard stores a new board.
func (db *DB) CreateBoard(b *Board) error {
	if err := b.Validate(); err != nil {
		return err
	}

	result, err := db.DB.Exec(`
		INSERT INTO board (
			name, has_side_he_sensor, l_ir_detector_thresh, r_ir_detector_thresh,
			use_ir_detector, stepper_driver, side_he_sensor_thresh, microstep,
			invert_stepper_direction
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name,
		nullableBoolInt(b.HasSideHESensor),
		b.LIRDetectorThresh,
		b.RIRDetectorThresh,
		nullableBoolInt(b.UseIRDetector),
		b.StepperDriver,
		b.SideHESensorThresh,
		b.Microstep,
		nullableBoolInt(b.InvertStepperDirection),
	)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	b.ID = int(id)
	return nil
}

// GetBoard retrieves a board by ID.
func (db *DB) GetBoard(id int) (*Board, error) {
	b, err := scanBoard(db.DB.QueryRow(`SELECT `+boardColumns+` FROM board WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("board", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	return b, nil
}

// GetBoardByName retrieves a board by its unique name.
func (db *DB) GetBoardByName(name string) (*Board, error) {
	b, err := scanBoard(db.DB.QueryRow(`SELECT `+boardColumns+` FROM board WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, notFound("board", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	return b, nil
}

// GetAllBoards lists every board ordered by name.
func (db *DB) GetAllBoards() ([]Board, error) {
	rows, err := db.DB.Query(`SELECT ` + boardColumns + ` FROM board ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}
	defer rows.Close()

	boards := []Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boards: %w", err)
	}
	return boards, nil
}

// UpdateBoard overwrites every column of an existing board.
func (db *DB) UpdateBoard(b *Board) error {
	if err := b.Validate(); err != nil {
		return err
	}

	result, err := db.DB.Exec(`
		UPDATE board SET
			name = ?,
			has_side_he_sensor = ?,
			l_ir_detector_thresh = ?,
			r_ir_detector_thresh = ?,
			use_ir_detector = ?,
			stepper_driver = ?,
			side_he_sensor_thresh = ?,
			microstep = ?,
			invert_stepper_direction = ?,
			updated_at = STRFTIME('%s', 'now')
		WHERE id = ?`,
		b.Name,
		nullableBoolInt(b.HasSideHESensor),
		b.LIRDetectorThresh,
		b.RIRDetectorThresh,
		nullableBoolInt(b.UseIRDetector),
		b.StepperDriver,
		b.SideHESensorThresh,
		b.Microstep,
		nullableBoolInt(b.InvertStepperDirection),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update board: %w", err)
	}
	return checkAffected(result, "board", b.ID)
}

// DeleteBoard removes a board. Sessions keep their rows with board_id cleared.
func (db *DB) DeleteBoard(id int) error {
	result, err := db.DB.Exec(`DELETE FROM board WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	return checkAffected(result, "board", id)
}
