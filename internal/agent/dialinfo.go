package agent

import (
	"encoding/json"
	"strings"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

const (
	// DefaultFirstName is used when no name could be resolved.
	DefaultFirstName = "Valued Customer"

	// PhoneUserIdentity is the well-known identity under which the callee
	// joins the room.
	PhoneUserIdentity = "phone_user"
)

// CallRequest is the payload accepted by the dispatch surface and carried
// to the agent as job metadata.
type CallRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	TransferTo  string `json:"transferTo,omitempty"`
}

// ResolvedDialInfo is the final set of parameters used to originate and
// manage one call. Built once per attempt.
type ResolvedDialInfo struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	TransferTo  string
}

// wireDialInfo accepts both the camelCase dispatch payload and the
// snake_case form older dispatch scripts emitted.
type wireDialInfo struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	PhoneNumber      string `json:"phoneNumber"`
	TransferTo       string `json:"transferTo"`
	FirstNameSnake   string `json:"first_name"`
	LastNameSnake    string `json:"last_name"`
	PhoneNumberSnake string `json:"phone_number"`
	TransferToSnake  string `json:"transfer_to"`
}

func (w wireDialInfo) normalize() ResolvedDialInfo {
	return ResolvedDialInfo{
		FirstName:   coalesce(w.FirstName, w.FirstNameSnake),
		LastName:    coalesce(w.LastName, w.LastNameSnake),
		PhoneNumber: coalesce(w.PhoneNumber, w.PhoneNumberSnake),
		TransferTo:  coalesce(w.TransferTo, w.TransferToSnake),
	}
}

func coalesce(a, b string) string {
	a = strings.TrimSpace(a)
	if a != "" {
		return a
	}
	return strings.TrimSpace(b)
}

// decodeMetadata parses a metadata JSON string. A malformed string is
// recovered locally: the decode error is logged and an empty config is
// returned, it never aborts the attempt by itself.
func decodeMetadata(metadata string) ResolvedDialInfo {
	metadata = strings.TrimSpace(metadata)
	if metadata == "" {
		return ResolvedDialInfo{}
	}
	var w wireDialInfo
	if err := json.Unmarshal([]byte(metadata), &w); err != nil {
		logger.Log.Warnf("Malformed call metadata, falling back to defaults: %v", err)
		return ResolvedDialInfo{}
	}
	return w.normalize()
}

// ResolveDialInfo builds the dial parameters from the layered sources:
// job metadata first, then the process-wide fallback metadata, then the
// fallback phone number (for phoneNumber only). Only a still-missing
// phone number is fatal.
func ResolveDialInfo(metadata, fallbackMetadata, fallbackPhone string) (ResolvedDialInfo, error) {
	info := decodeMetadata(metadata)
	fb := decodeMetadata(fallbackMetadata)

	if info.FirstName == "" {
		info.FirstName = fb.FirstName
	}
	if info.LastName == "" {
		info.LastName = fb.LastName
	}
	if info.PhoneNumber == "" {
		info.PhoneNumber = fb.PhoneNumber
	}
	if info.TransferTo == "" {
		info.TransferTo = fb.TransferTo
	}

	if info.PhoneNumber == "" {
		info.PhoneNumber = strings.TrimSpace(fallbackPhone)
	}
	if info.PhoneNumber == "" {
		return info, ErrMissingPhoneNumber
	}

	if info.FirstName == "" {
		info.FirstName = DefaultFirstName
	}
	return info, nil
}
