package constants

import (
	"fmt"
	"strings"
)

// RetentionStatus is the lifecycle state of a stored retention.
type RetentionStatus string

// Stable values (store these exact strings in DB).
const (
	StatusSolicitado      RetentionStatus = "Solicitado"       // initial
	StatusPendienteAnular RetentionStatus = "Pendiente Anular" // void requested
	StatusAnulado         RetentionStatus = "Anulado"          // voided, no forward progress
)

// InitialStatus is assigned to every newly created record.
const InitialStatus = StatusSolicitado

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []RetentionStatus{StatusSolicitado, StatusPendienteAnular, StatusAnulado}

func (s RetentionStatus) String() string { return string(s) }

// Valid reports whether s is one of the known statuses.
func (s RetentionStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus maps user or wire input to a RetentionStatus.
// Accepts the stored values plus the compact "PendienteAnular" form; case and
// inner whitespace are ignored.
func ParseStatus(raw string) (RetentionStatus, error) {
	key := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	switch key {
	case "solicitado":
		return StatusSolicitado, nil
	case "pendienteanular":
		return StatusPendienteAnular, nil
	case "anulado":
		return StatusAnulado, nil
	}
	return "", fmt.Errorf("unknown estado %q", raw)
}
