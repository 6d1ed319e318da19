// Package hardware checks the serial ports recorded on boxes against the
// ports actually attached to this machine.
package hardware

import (
	"fmt"
	"sort"
	"strings"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/monitoring"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is one serial device present on the host.
type Port struct {
	Path         string `json:"path"`
	FriendlyName string `json:"friendly_name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// Lister enumerates serial ports.
type Lister interface {
	List() ([]Port, error)
}

// SystemLister lists the ports of the running host.
type SystemLister struct{}

// List prefers the detailed USB enumeration and falls back to plain port
// names where the platform cannot provide it.
func (SystemLister) List() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]Port, 0, len(details))
		for _, d := range details {
			ports = append(ports, Port{
				Path:         d.Name,
				FriendlyName: FriendlyName(d.Name),
				IsUSB:        d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
			})
		}
		return ports, nil
	}
	monitoring.Logf("detailed port enumeration failed, using port names only: %v", err)

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	ports := make([]Port, 0, len(names))
	for _, name := range names {
		ports = append(ports, Port{Path: name, FriendlyName: FriendlyName(name)})
	}
	return ports, nil
}

// FriendlyName describes common Linux serial device names.
func FriendlyName(portPath string) string {
	parts := strings.Split(portPath, "/")
	deviceName := parts[len(parts)-1]
	switch {
	case strings.HasPrefix(deviceName, "ttyUSB"):
		return fmt.Sprintf("USB Serial Adapter (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyACM"):
		return fmt.Sprintf("Arduino / USB CDC Device (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyAMA"):
		return fmt.Sprintf("Raspberry Pi Serial (%s)", deviceName)
	case strings.HasPrefix(deviceName, "COM"):
		return fmt.Sprintf("Windows COM Port (%s)", deviceName)
	default:
		return deviceName
	}
}

// BoxPort reports whether the serial port recorded on a box is attached.
type BoxPort struct {
	BoxID      int    `json:"box_id"`
	Box        string `json:"box"`
	SerialPort string `json:"serial_port"`
	Present    bool   `json:"present"`
	Port       *Port  `json:"port,omitempty"`
	// Other boxes recorded with the same port.
	SharedWith []string `json:"shared_with,omitempty"`
}

// Audit is the result of matching boxes to attached ports.
type Audit struct {
	Boxes      []BoxPort `json:"boxes"`
	Unassigned []Port    `json:"unassigned"`
}

// Missing returns the boxes whose port is not attached.
func (a Audit) Missing() []BoxPort {
	var missing []BoxPort
	for _, b := range a.Boxes {
		if !b.Present {
			missing = append(missing, b)
		}
	}
	return missing
}

// AuditBoxes matches each box's SerialPort against ports. Boxes may share a
// port, so every box sharing one is reported present.
func AuditBoxes(boxes []db.Box, ports []Port) Audit {
	byPath := make(map[string]Port, len(ports))
	for _, p := range ports {
		byPath[p.Path] = p
	}
	owners := make(map[string][]string)
	for _, b := range boxes {
		owners[b.SerialPort] = append(owners[b.SerialPort], b.Name)
	}

	audit := Audit{Boxes: []BoxPort{}, Unassigned: []Port{}}
	for _, b := range boxes {
		status := BoxPort{BoxID: b.ID, Box: b.Name, SerialPort: b.SerialPort}
		if p, ok := byPath[b.SerialPort]; ok {
			status.Present = true
			status.Port = &p
		}
		for _, other := range owners[b.SerialPort] {
			if other != b.Name {
				status.SharedWith = append(status.SharedWith, other)
			}
		}
		audit.Boxes = append(audit.Boxes, status)
	}

	for _, p := range ports {
		if _, assigned := owners[p.Path]; !assigned {
			audit.Unassigned = append(audit.Unassigned, p)
		}
	}
	sort.Slice(audit.Unassigned, func(i, j int) bool {
		return audit.Unassigned[i].Path < audit.Unassigned[j].Path
	})
	return audit
}

// Run lists the host ports and audits every box in store.
func Run(store *db.DB, lister Lister) (Audit, error) {
	boxes, err := store.GetAllBoxes()
	if err != nil {
		return Audit{}, err
	}
	ports, err := lister.List()
	if err != nil {
		return Audit{}, err
	}
	return AuditBoxes(boxes, ports), nil
}
