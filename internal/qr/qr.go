// Package qr defines the encoding boundary for printable household cards.
// Rendering is an external concern; the engine only fixes the payload
// contract so every renderer produces scannable, interchangeable cards.
package qr

import (
	"fmt"

	"reliefcore/pkg/domain"
)

// PayloadVersion is bumped whenever the payload layout changes, so field
// scanners can reject cards they do not understand.
const PayloadVersion = 1

// Encoder turns a payload into image bytes. Implementations must be pure:
// the same payload always yields the same image.
type Encoder interface {
	Encode(payload string) ([]byte, error)
}

// Payload is the canonical card content for a household identifier:
// "RELIEF:v<version>:<urid>". Scanners parse it back with ParsePayload.
func Payload(id domain.URID) string {
	return fmt.Sprintf("RELIEF:v%d:%s", PayloadVersion, id)
}

// ParsePayload reverses Payload, rejecting unknown versions and malformed
// identifiers.
func ParsePayload(s string) (domain.URID, error) {
	var version int
	var raw string
	if _, err := fmt.Sscanf(s, "RELIEF:v%d:%s", &version, &raw); err != nil {
		return "", fmt.Errorf("malformed card payload")
	}
	if version != PayloadVersion {
		return "", fmt.Errorf("unsupported card payload version %d", version)
	}
	return domain.ParseURID(raw)
}
