package models

import "github.com/shopspring/decimal"

type DashboardStats struct {
	TotalTeams      int             `json:"total_teams"`
	VerifiedTeams   int             `json:"verified_teams"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	PendingPayments int             `json:"pending_payments"`
	Departments     map[string]int  `json:"departments"`
}

type EventStats struct {
	EventID         EventID         `json:"event_id"`
	EventName       string          `json:"event_name"`
	TotalTeams      int             `json:"total_teams"`
	VerifiedTeams   int             `json:"verified_teams"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	PendingPayments int             `json:"pending_payments"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}

type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

type RevenuePoint struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}
