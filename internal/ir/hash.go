package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPlan     = "vidsheet/plan/v1"
	DomainTimeline = "vidsheet/timeline/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlanHash identifies a compiled plan. Two compiles of the same enabled
// commands produce the same hash, so recordings can tell whether an edit
// changed what plays.
func PlanHash(p Plan) (string, error) {
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("PlanHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// TimelineHash identifies an ordered command list, including disabled
// commands and display names.
func TimelineHash(commands []Command) (string, error) {
	list := make([]any, len(commands))
	for i, c := range commands {
		list[i] = c.canonical()
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("TimelineHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTimeline, canonical), nil
}

// MustPlanHash is like PlanHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPlanHash(p Plan) string {
	h, err := PlanHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
