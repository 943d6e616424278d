package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
)

// ExportFile is a rendered download: body plus the suggested file name.
type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
}

type ExportService interface {
	TeamsCSV(ctx context.Context, scope models.AdminScope, event *models.EventID) (*ExportFile, error)
	AllEventsZIP(ctx context.Context, scope models.AdminScope) (*ExportFile, error)
}

var exportHeader = []string{
	"S.No", "Team Name",
	"Member 1 Name", "Member 1 Email", "Phone No",
	"Member 2 Name", "Member 2 Email",
	"Member 3 Name", "Member 3 Email",
	"Member 4 Name", "Member 4 Email",
	"Transaction ID", "Amount Paid",
}

type exportService struct {
	teamRepo repositories.TeamRepository
	catalog  models.EventCatalog
	now      func() time.Time
}

func NewExportService(teamRepo repositories.TeamRepository, catalog models.EventCatalog) ExportService {
	return &exportService{teamRepo: teamRepo, catalog: catalog, now: time.Now}
}

func (s *exportService) TeamsCSV(ctx context.Context, scope models.AdminScope, event *models.EventID) (*ExportFile, error) {
	filter := scope.EventFilter(event)
	teams, err := s.teamRepo.List(ctx, repositories.TeamFilter{EventID: filter})
	if err != nil {
		return nil, err
	}

	body, err := writeTeamsCSV(teams)
	if err != nil {
		return nil, err
	}

	tag := "all_events"
	if filter != nil {
		tag = string(*filter)
	}
	return &ExportFile{
		Name:        fmt.Sprintf("%s_teams_%s.csv", tag, s.now().Format("20060102_150405")),
		ContentType: "text/csv",
		Body:        body,
	}, nil
}

// AllEventsZIP bundles one CSV per event the scope allows, in catalog order.
func (s *exportService) AllEventsZIP(ctx context.Context, scope models.AdminScope) (*ExportFile, error) {
	now := s.now()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ev := range s.catalog.All() {
		if !scope.Allows(ev.ID) {
			continue
		}
		id := ev.ID
		teams, err := s.teamRepo.List(ctx, repositories.TeamFilter{EventID: &id})
		if err != nil {
			return nil, err
		}
		body, err := writeTeamsCSV(teams)
		if err != nil {
			return nil, err
		}

		label := ev.ExportLabel
		if label == "" {
			label = string(ev.ID)
		}
		w, err := zw.Create(fmt.Sprintf("%s_teams_%s.csv", label, now.Format("20060102")))
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", ev.ID, err)
		}
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", ev.ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return &ExportFile{
		Name:        fmt.Sprintf("TEXPERIA_all_events_%s.zip", now.Format("20060102_150405")),
		ContentType: "application/zip",
		Body:        buf.Bytes(),
	}, nil
}

func writeTeamsCSV(teams []models.TeamAdminView) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for i, t := range teams {
		// Excel иначе превращает длинные числовые ID в 1.23E+11.
		txn := ""
		if t.TransactionID != nil && *t.TransactionID != "" {
			txn = `="` + *t.TransactionID + `"`
		}
		amount := "0"
		if t.PaymentAmount != nil {
			amount = t.PaymentAmount.String()
		}
		record := []string{
			strconv.Itoa(i + 1), t.TeamName,
			t.LeaderName, t.LeaderEmail, t.LeaderPhone,
			t.Member2Name, t.Member2Email,
			t.Member3Name, t.Member3Email,
			t.Member4Name, t.Member4Email,
			txn, amount,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
