package db

import (
	"database/sql"
	"fmt"
)

// ProtocolKind selects between the Arduino sketch and the Python script
// halves of a behavioral protocol. Each kind has its own table.
type ProtocolKind string

const (
	ArduinoProtocol ProtocolKind = "arduino"
	PythonProtocol  ProtocolKind = "python"
)

// ParseProtocolKind maps "arduino" or "python" to a ProtocolKind.
func ParseProtocolKind(s string) (ProtocolKind, error) {
	switch k := ProtocolKind(s); k {
	case ArduinoProtocol, PythonProtocol:
		return k, nil
	}
	return "", fmt.Errorf("unknown protocol kind %q", s)
}

func (k ProtocolKind) table() string {
	if k == PythonProtocol {
		return "python_protocol"
	}
	return "arduino_protocol"
}

func (k ProtocolKind) entity() string {
	return string(k) + " protocol"
}

// Protocol is a named protocol file, e.g. TwoChoice.ino or TwoChoice.py.
type Protocol struct {
	ID   int          `json:"id"`
	Kind ProtocolKind `json:"kind"`
	Name string       `json:"name"`
	Path string       `json:"path"`
}

func (p *Protocol) String() string { return p.Name }

// Validate checks that every required field is set.
func (p *Protocol) Validate() error {
	if _, err := ParseProtocolKind(string(p.Kind)); err != nil {
		return err
	}
	return firstErr(
		required(p.Kind.entity(), "name", p.Name),
		required(p.Kind.entity(), "path", p.Path),
	)
}

// CreateProtocol stores p in the table of its kind.
func (db *DB) CreateProtocol(p *Protocol) error {
	if err := p.Validate(); err != nil {
		return err
	}

	result, err := db.DB.Exec(`INSERT INTO `+p.Kind.table()+` (name, path) VALUES (?, ?)`, p.Name, p.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p.Kind.entity(), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	p.ID = int(id)
	return nil
}

func (db *DB) getProtocol(kind ProtocolKind, where string, key interface{}) (*Protocol, error) {
	p := Protocol{Kind: kind}
	err := db.DB.QueryRow(`SELECT id, name, path FROM `+kind.table()+` WHERE `+where+` = ?`, key).
		Scan(&p.ID, &p.Name, &p.Path)
	if err == sql.ErrNoRows {
		return nil, notFound(kind.entity(), key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind.entity(), err)
	}
	return &p, nil
}

// GetProtocol retrieves a protocol of the given kind by ID.
func (db *DB) GetProtocol(kind ProtocolKind, id int) (*Protocol, error) {
	return db.getProtocol(kind, "id", id)
}

// GetArduinoProtocolByName retrieves an Arduino protocol by name.
func (db *DB) GetArduinoProtocolByName(name string) (*Protocol, error) {
	return db.getProtocol(ArduinoProtocol, "name", name)
}

// GetPythonProtocolByName retrieves a Python protocol by name.
func (db *DB) GetPythonProtocolByName(name string) (*Protocol, error) {
	return db.getProtocol(PythonProtocol, "name", name)
}

// GetAllProtocols lists every protocol of kind ordered by name.
func (db *DB) GetAllProtocols(kind ProtocolKind) ([]Protocol, error) {
	rows, err := db.DB.Query(`SELECT id, name, path FROM ` + kind.table() + ` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", kind.entity(), err)
	}
	defer rows.Close()

	protocols := []Protocol{}
	for rows.Next() {
		p := Protocol{Kind: kind}
		if err := rows.Scan(&p.ID, &p.Name, &p.Path); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind.entity(), err)
		}
		protocols = append(protocols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %ss: %w", kind.entity(), err)
	}
	return protocols, nil
}

// UpdateProtocol overwrites the name and path of an existing protocol.
func (db *DB) UpdateProtocol(p *Protocol) error {
	if err := p.Validate(); err != nil {
		return err
	}
	result, err := db.DB.Exec(`UPDATE `+p.Kind.table()+` SET name = ?, path = ? WHERE id = ?`, p.Name, p.Path, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", p.Kind.entity(), err)
	}
	return checkAffected(result, p.Kind.entity(), p.ID)
}

// DeleteProtocol removes a protocol of the given kind.
func (db *DB) DeleteProtocol(kind ProtocolKind, id int) error {
	result, err := db.DB.Exec(`DELETE FROM `+kind.table()+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind.entity(), err)
	}
	return checkAffected(result, kind.entity(), id)
}
