package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return v
}

func TestTicketAvailableAt(t *testing.T) {
	now := mustTime(t, "2024-01-01T10:00:00Z")
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Ticket{}.AvailableAt(now))
	assert.True(t, Ticket{ReservedUntil: &past}.AvailableAt(now))
	assert.False(t, Ticket{ReservedUntil: &future}.AvailableAt(now))
	assert.False(t, Ticket{IsSold: true}.AvailableAt(now))
	assert.False(t, Ticket{IsSold: true, ReservedUntil: &past}.AvailableAt(now))
}
