package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texperia/registration/models"
)

func TestExportService_TeamsCSV(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registered(t, "a@example.com", teamInput(models.EventComicStrip, "Ink Riders", members(1)...))
	env.registered(t, "b@example.com", teamInput(models.EventPromptIdol, "Prompt Kings"))
	_, err := env.payments.SubmitEvidence(ctx, "a@example.com", SubmitPaymentInput{TransactionID: "123456789012"})
	require.NoError(t, err)

	t.Run("ScopedToEvent", func(t *testing.T) {
		file, err := env.export.TeamsCSV(ctx, models.ScopeFor(models.EventComicStrip), nil)
		require.NoError(t, err)
		assert.Equal(t, "comic_strip_teams_20260301_100000.csv", file.Name)
		assert.Equal(t, "text/csv", file.ContentType)

		records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, exportHeader, records[0])
		row := records[1]
		assert.Equal(t, "1", row[0])
		assert.Equal(t, "Ink Riders", row[1])
		assert.Equal(t, "ravi@example.com", row[6])
		assert.Equal(t, `="123456789012"`, row[11])
		assert.Equal(t, "500", row[12])
	})

	t.Run("GlobalAllEvents", func(t *testing.T) {
		file, err := env.export.TeamsCSV(ctx, models.ScopeAll, nil)
		require.NoError(t, err)
		assert.Equal(t, "all_events_teams_20260301_100000.csv", file.Name)

		records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		// Команда без оплаты.
		assert.Equal(t, "", records[2][11])
		assert.Equal(t, "0", records[2][12])
	})
}

func TestExportService_AllEventsZIP(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registered(t, "a@example.com", teamInput(models.EventComicStrip, "Ink Riders"))

	readZip := func(t *testing.T, file *ExportFile) map[string]string {
		t.Helper()
		zr, err := zip.NewReader(bytes.NewReader(file.Body), int64(len(file.Body)))
		require.NoError(t, err)
		out := map[string]string{}
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			out[f.Name] = string(data)
		}
		return out
	}

	t.Run("GlobalGetsEveryEvent", func(t *testing.T) {
		file, err := env.export.AllEventsZIP(ctx, models.ScopeAll)
		require.NoError(t, err)
		assert.Equal(t, "TEXPERIA_all_events_20260301_100000.zip", file.Name)
		assert.Equal(t, "application/zip", file.ContentType)

		entries := readZip(t, file)
		assert.Len(t, entries, 3)
		assert.Contains(t, entries["AI_Comic_Strip_teams_20260301.csv"], "Ink Riders")
		assert.Contains(t, entries, "Prompt_Engineering_Idol_teams_20260301.csv")
		assert.Contains(t, entries, "AI_Blitz_teams_20260301.csv")
	})

	t.Run("ScopedGetsOwnEventOnly", func(t *testing.T) {
		file, err := env.export.AllEventsZIP(ctx, models.ScopeFor(models.EventAIBlitz))
		require.NoError(t, err)

		entries := readZip(t, file)
		require.Len(t, entries, 1)
		assert.NotContains(t, entries["AI_Blitz_teams_20260301.csv"], "Ink Riders")
	})
}
