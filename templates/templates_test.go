package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct{ Name, Email string }

func TestRender_PaymentApproved(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	data := map[string]interface{}{
		"FestName":      "TEXPERIA 2026",
		"EventName":     "AI Blitz",
		"TeamName":      "<Blitz>",
		"Department":    "CSE",
		"Year":          "2nd Year",
		"TransactionID": "TXN12345678",
		"OrderID":       "UPI_ai_blitz_4_1760000000",
		"FeePerHead":    300,
		"MemberCount":   2,
		"Amount":        "600",
		"Members":       []member{{"Asha", "asha@college.edu"}, {"Ben", "ben@college.edu"}},
	}

	html, text, err := r.Render(PaymentApproved, data)
	require.NoError(t, err)

	assert.Contains(t, html, "&lt;Blitz&gt;")
	assert.Contains(t, html, "asha@college.edu")
	assert.Contains(t, text, "Dear <Blitz> team")
	assert.Contains(t, text, "1. Asha (asha@college.edu)")
	assert.Contains(t, text, "2. Ben (ben@college.edu)")
}

func TestRender_Unknown(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, _, err = r.Render("missing", nil)
	assert.Error(t, err)
}
