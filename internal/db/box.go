package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Box describes one behavior box: reward valves, the serial port of its
// controller and where its windows are placed on screen.
type Box struct {
	ID                   int       `json:"id"`
	Name                 string    `json:"name"`
	LRewardDuration      *int      `json:"l_reward_duration"`
	RRewardDuration      *int      `json:"r_reward_duration"`
	SerialPort           string    `json:"serial_port"`
	VideoDevice          *string   `json:"video_device"`
	VideoWindowPosition  Position  `json:"video_window_position"`
	GUIWindowPosition    Position  `json:"gui_window_position"`
	WindowPositionIRPlot Position  `json:"window_position_ir_plot"`
	SubprocessWindowYPos *int      `json:"subprocess_window_ypos"`
	VideoBrightness      *int      `json:"video_brightness"`
	VideoGain            *int      `json:"video_gain"`
	VideoExposure        *int      `json:"video_exposure"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (b *Box) String() string { return b.Name }

// Validate checks that every required field is set.
func (b *Box) Validate() error {
	return firstErr(
		required("box", "name", b.Name),
		present("box", "l_reward_duration", b.LRewardDuration),
		required("box", "serial_port", b.SerialPort),
		optional("box", "video_device", b.VideoDevice),
	)
}

const boxColumns = `
	id, name, l_reward_duration, r_reward_duration, serial_port, video_device,
	video_window_position_x, video_window_position_y,
	gui_window_position_x, gui_window_position_y,
	window_position_ir_plot_x, window_position_ir_plot_y,
	subprocess_window_ypos, video_brightness, video_gain, video_exposure,
	created_at, updated_at`

func scanBox(row scanner) (*Box, error) {
	var b Box
	var createdAtUnix, updatedAtUnix int64
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.LRewardDuration,
		&b.RRewardDuration,
		&b.SerialPort,
		&b.VideoDevice,
		&b.VideoWindowPosition.X,
		&b.VideoWindowPosition.Y,
		&b.GUIWindowPosition.X,
		&b.GUIWindowPosition.Y,
		&b.WindowPositionIRPlot.X,
		&b.WindowPositionIRPlot.Y,
		&b.SubprocessWindowYPos,
		&b.VideoBrightness,
		&b.VideoGain,
		&b.VideoExposure,
		&createdAtUnix,
		&updatedAtUnix,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = time.Unix(createdAtUnix, 0)
	b.UpdatedAt = time.Unix(updatedAtUnix, 0)
	return &b, nil
}

// CreateBox stores a new box.
func (db *DB) CreateBox(b *Box) error {
	if err := b.Validate(); err != nil {
		return err
	}

	result, err := db.DB.Exec(`
		INSERT INTO box (
			name, l_reward_duration, r_reward_duration, serial_port, video_device,
			video_window_position_x, video_window_position_y,
			gui_window_position_x, gui_window_position_y,
			window_position_ir_plot_x, window_position_ir_plot_y,
			subprocess_window_ypos, video_brightness, video_gain, video_exposure
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name,
		b.LRewardDuration,
		b.RRewardDuration,
		b.SerialPort,
		b.VideoDevice,
		b.VideoWindowPosition.X,
		b.VideoWindowPosition.Y,
		b.GUIWindowPosition.X,
		b.GUIWindowPosition.Y,
		b.WindowPositionIRPlot.X,
		b.WindowPositionIRPlot.Y,
		b.SubprocessWindowYPos,
		b.VideoBrightness,
		b.VideoGain,
		b.VideoExposure,
	)
	if err != nil {
		return fmt.Errorf("failed to create box: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	b.ID = int(id)
	return nil
}

// GetBox retrieves a box by ID.
func (db *DB) GetBox(id int) (*Box, error) {
	b, err := scanBox(db.DB.QueryRow(`SELECT `+boxColumns+` FROM box WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("box", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	return b, nil
}

// GetBoxByName retrieves a box by its unique name.
func (db *DB) GetBoxByName(name string) (*Box, error) {
	b, err := scanBox(db.DB.QueryRow(`SELECT `+boxColumns+` FROM box WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, notFound("box", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	return b, nil
}

// GetAllBoxes lists every box ordered by name.
func (db *DB) GetAllBoxes() ([]Box, error) {
	rows, err := db.DB.Query(`SELECT ` + boxColumns + ` FROM box ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query boxes: %w", err)
	}
	defer rows.Close()

	boxes := []Box{}
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		boxes = append(boxes, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boxes: %w", err)
	}
	return boxes, nil
}

// UpdateBox overwrites every column of an existing box.
func (db *DB) UpdateBox(b *Box) error {
	if err := b.Validate(); err != nil {
		return err
	}

	result, err := db.DB.Exec(`
		UPDATE box SET
			name = ?,
			l_reward_duration = ?,
			r_reward_duration = ?,
			serial_port = ?,
			video_device = ?,
			video_window_position_x = ?,
			video_window_position_y = ?,
			gui_window_position_x = ?,
			gui_window_position_y = ?,
			window_position_ir_plot_x = ?,
			window_position_ir_plot_y = ?,
			subprocess_window_ypos = ?,
			video_brightness = ?,
			video_gain = ?,
			video_exposure = ?,
			updated_at = STRFTIME('%s', 'now')
		WHERE id = ?`,
		b.Name,
		b.LRewardDuration,
		b.RRewardDuration,
		b.SerialPort,
		b.VideoDevice,
		b.VideoWindowPosition.X,
		b.VideoWindowPosition.Y,
		b.GUIWindowPosition.X,
		b.GUIWindowPosition.Y,
		b.WindowPositionIRPlot.X,
		b.WindowPositionIRPlot.Y,
		b.SubprocessWindowYPos,
		b.VideoBrightness,
		b.VideoGain,
		b.VideoExposure,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update box: %w", err)
	}
	return checkAffected(result, "box", b.ID)
}

// DeleteBox removes a box. Sessions that ran in it keep their rows with
// box_id cleared.
func (db *DB) DeleteBox(id int) error {
	result, err := db.DB.Exec(`DELETE FROM box WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete box: %w", err)
	}
	return checkAffected(result, "box", id)
}
