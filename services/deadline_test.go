package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadline(t *testing.T) {
	before := time.Date(2026, 3, 15, 23, 59, 58, 0, time.UTC)
	after := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		raw        string
		valid      bool
		openBefore bool
		openAfter  bool
	}{
		{"NaiveIsUTC", "2026-03-15T23:59:59", true, true, false},
		{"RFC3339", "2026-03-15T23:59:59Z", true, true, false},
		{"WithOffset", "2026-03-16T05:29:59+05:30", true, true, false},
		{"DateOnly", "2026-03-16", true, true, false},
		{"GarbageFailsOpen", "next friday", false, true, true},
		{"EmptyFailsOpen", "", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDeadline(tt.raw)
			assert.Equal(t, tt.valid, d.Valid())
			assert.Equal(t, tt.openBefore, d.Open(before))
			assert.Equal(t, tt.openAfter, d.Open(after))
			assert.Equal(t, tt.raw, d.Raw())
		})
	}
}
