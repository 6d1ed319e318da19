package db

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// NotAvailable is shown in place of a performance value that cannot be read.
const NotAvailable = "NA"

// valveSummary renders water consumed, and the mean valve dose when known,
// as "2.50 @30.0 µL". Zero counts as not recorded.
func valveSummary(consumption, valveMean *float64) string {
	if consumption == nil || *consumption == 0 {
		return ""
	}
	s := fmt.Sprintf("%0.2f", *consumption)
	if valveMean != nil && *valveMean != 0 {
		s += fmt.Sprintf(" @%0.1f µL", 1000*(*valveMean))
	}
	return s
}

// LeftValveSummary summarises left-port water delivery.
func (s *Session) LeftValveSummary() string {
	return valveSummary(s.LeftWaterConsumption, s.LeftValveMean)
}

// RightValveSummary summarises right-port water delivery.
func (s *Session) RightValveSummary() string {
	return valveSummary(s.RightWaterConsumption, s.RightValveMean)
}

func percent(v NullFloat) (string, error) {
	f, err := v.Number()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.0f", 100*f), nil
}

// displayPerf never fails: an unreadable value is shown as NotAvailable.
func displayPerf(v NullFloat) string {
	s, err := percent(v)
	if err != nil {
		return NotAvailable
	}
	return s
}

// DisplayLeftPerf shows left performance as a whole percentage.
func (s *Session) DisplayLeftPerf() string { return displayPerf(s.LeftPerf) }

// DisplayRightPerf shows right performance as a whole percentage.
func (s *Session) DisplayRightPerf() string { return displayPerf(s.RightPerf) }

// SessionDisplay is a session with its derived display values filled in.
type SessionDisplay struct {
	Session
	Label             string `json:"label"`
	LeftValveSummary  string `json:"left_valve_summary"`
	RightValveSummary string `json:"right_valve_summary"`
	DisplayLeftPerf   string `json:"display_left_perf"`
	DisplayRightPerf  string `json:"display_right_perf"`
}

// Display computes the derived values of s.
func (s *Session) Display() SessionDisplay {
	return SessionDisplay{
		Session:           *s,
		Label:             s.String(),
		LeftValveSummary:  s.LeftValveSummary(),
		RightValveSummary: s.RightValveSummary(),
		DisplayLeftPerf:   s.DisplayLeftPerf(),
		DisplayRightPerf:  s.DisplayRightPerf(),
	}
}

// Column is a caption for one field of a tabular session listing.
type Column struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// SessionColumns lists the session table columns in display order.
var SessionColumns = []Column{
	{Field: "label", Label: "Name"},
	{Field: "python_param_scheduler_name", Label: "Scheduler"},
	{Field: "python_param_stimulus_set", Label: "StimSet"},
	{Field: "irl_param_stimulus_arm", Label: "StimArm"},
	{Field: "date_time_start", Label: "Start"},
	{Field: "date_time_stop", Label: "Stop"},
	{Field: "user_data_water_pipe_position_start", Label: "Pipe Start"},
	{Field: "user_data_water_pipe_position_stop", Label: "Pipe Stop"},
	{Field: "left_valve_summary", Label: "L water"},
	{Field: "right_valve_summary", Label: "R water"},
	{Field: "display_left_perf", Label: "L perf"},
	{Field: "display_right_perf", Label: "R perf"},
	{Field: "user_data_bias_summary", Label: "Bias"},
	{Field: "user_data_weight", Label: "Weight"},
}

// ColumnLabel returns the caption for field, or field itself if it has none.
func ColumnLabel(field string) string {
	for _, c := range SessionColumns {
		if c.Field == field {
			return c.Label
		}
	}
	return field
}

// DefaultWaterWindow is the number of recent sessions MeanWaterConsumed
// averages over when the caller does not choose.
const DefaultWaterWindow = 5

// totalWater returns left plus right consumption, and false when neither
// side was recorded.
func totalWater(s *Session) (float64, bool) {
	var total float64
	ok := false
	if s.LeftWaterConsumption != nil {
		total += *s.LeftWaterConsumption
		ok = true
	}
	if s.RightWaterConsumption != nil {
		total += *s.RightWaterConsumption
		ok = true
	}
	return total, ok
}

// MeanWaterConsumed averages total water consumption over the last n
// sessions run in box that recorded any. It returns nil when none did.
func (db *DB) MeanWaterConsumed(boxID int, n int) (*float64, error) {
	if n <= 0 {
		n = DefaultWaterWindow
	}

	rows, err := db.DB.Query(`
		SELECT `+sessionColumns+`
		FROM session
		WHERE box_id = ?
		  AND (user_data_left_water_consumption IS NOT NULL
		       OR user_data_right_water_consumption IS NOT NULL)
		ORDER BY date_time_start IS NULL, date_time_start DESC, name DESC
		LIMIT ?`,
		boxID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query box water: %w", err)
	}
	defer rows.Close()

	var totals []float64
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if total, ok := totalWater(s); ok {
			totals = append(totals, total)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	if len(totals) == 0 {
		return nil, nil
	}
	mean := stat.Mean(totals, nil)
	return &mean, nil
}
