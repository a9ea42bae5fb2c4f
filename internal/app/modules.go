package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gcpanel/internal/auth"
	"gcpanel/internal/inventory"
	"gcpanel/internal/model"
	"gcpanel/internal/service"
)

// Deps are the services the built-in modules read from.
type Deps struct {
	Projects     service.ProjectService
	Rfis         service.RfiService
	Submittals   service.SubmittalService
	Users        service.UserService
	Settings     service.SettingsService
	Equipment    *inventory.EquipmentStore
	Materials    *inventory.MaterialStore
	Documents    *inventory.DocumentStore
	Photos       *inventory.PhotoStore
	Transmittals *inventory.TransmittalStore
	DailyReports *inventory.DailyReportStore
	Now          func() time.Time
}

type DashboardView struct {
	ProjectCount       int64                           `json:"project_count"`
	ProjectsByStatus   map[model.ProjectStatus]int64   `json:"projects_by_status"`
	RfisByStatus       map[model.RfiStatus]int64       `json:"rfis_by_status"`
	SubmittalsByStatus map[model.SubmittalStatus]int64 `json:"submittals_by_status"`
	OverdueRfis        []model.Rfi                     `json:"overdue_rfis"`
	OverdueSubmittals  []model.Submittal               `json:"overdue_submittals"`
	MaintenanceDue     int                             `json:"maintenance_due"`
	LowStock           int                             `json:"low_stock"`
}

type ProjectsView struct {
	Projects []model.Project       `json:"projects"`
	Statuses []model.ProjectStatus `json:"statuses"`
}

type RfisView struct {
	Mine    []model.Rfi `json:"mine"`
	Overdue []model.Rfi `json:"overdue"`
}

type SubmittalsView struct {
	Mine    []model.Submittal `json:"mine"`
	Overdue []model.Submittal `json:"overdue"`
}

type EquipmentView struct {
	Items              []inventory.Equipment `json:"items"`
	MaintenanceOverdue []inventory.Equipment `json:"maintenance_overdue"`
	DailyRentalCost    decimal.Decimal       `json:"daily_rental_cost"`
}

type MaterialsView struct {
	Items      []inventory.Material `json:"items"`
	LowStock   []inventory.Material `json:"low_stock"`
	TotalValue decimal.Decimal      `json:"total_value"`
}

type DocumentsView struct {
	Items         []inventory.Document `json:"items"`
	NeedingReview []inventory.Document `json:"needing_review"`
	Expired       []inventory.Document `json:"expired"`
	CheckedOut    []inventory.Document `json:"checked_out"`
}

type PhotosView struct {
	Items         []inventory.Photo `json:"items"`
	PendingReview []inventory.Photo `json:"pending_review"`
	ApprovalRate  float64           `json:"approval_rate"`
}

type TransmittalsView struct {
	Items                 []inventory.Transmittal `json:"items"`
	PendingAcknowledgment []inventory.Transmittal `json:"pending_acknowledgment"`
}

type DailyReportsView struct {
	Items          []inventory.DailyReport `json:"items"`
	Latest         *inventory.DailyReport  `json:"latest,omitempty"`
	TotalCrewHours float64                 `json:"total_crew_hours"`
}

// DefaultModules returns the built-in modules in menu order.
func DefaultModules(d Deps) []Module {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return []Module{
		{Name: "dashboard", Title: "Dashboard", Permission: auth.PermRead, Build: d.dashboard(now)},
		{Name: "projects", Title: "Projects", Permission: auth.PermRead, Build: d.projects},
		{Name: "rfis", Title: "RFIs", Permission: auth.PermRead, Build: d.rfis},
		{Name: "submittals", Title: "Submittals", Permission: auth.PermRead, Build: d.submittals},
		{Name: "equipment", Title: "Equipment", Permission: auth.PermRead, Build: d.equipment(now)},
		{Name: "materials", Title: "Materials", Permission: auth.PermRead, Build: d.materials},
		{Name: "documents", Title: "Documents", Permission: auth.PermRead, Build: d.documents(now)},
		{Name: "photos", Title: "Progress Photos", Permission: auth.PermRead, Build: d.photos},
		{Name: "transmittals", Title: "Transmittals", Permission: auth.PermRead, Build: d.transmittals},
		{Name: "daily-reports", Title: "Daily Reports", Permission: auth.PermRead, Build: d.dailyReports},
		{Name: "users", Title: "Users", Permission: auth.PermAdmin, Build: d.users},
		{Name: "settings", Title: "Settings", Permission: auth.PermAdmin, Build: d.settings},
	}
}

func (d Deps) dashboard(now func() time.Time) func(context.Context, *Session) (any, error) {
	return func(ctx context.Context, _ *Session) (any, error) {
		projects, err := d.Projects.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		rfis, err := d.Rfis.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		submittals, err := d.Submittals.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		overdueRfis, err := d.Rfis.ListOverdue(ctx)
		if err != nil {
			return nil, err
		}
		overdueSubmittals, err := d.Submittals.ListOverdue(ctx)
		if err != nil {
			return nil, err
		}

		view := &DashboardView{
			ProjectsByStatus:   projects,
			RfisByStatus:       rfis,
			SubmittalsByStatus: submittals,
			OverdueRfis:        nonNil(overdueRfis),
			OverdueSubmittals:  nonNil(overdueSubmittals),
		}
		for _, n := range projects {
			view.ProjectCount += n
		}
		if d.Equipment != nil {
			view.MaintenanceDue = len(d.Equipment.MaintenanceOverdue(now()))
		}
		if d.Materials != nil {
			view.LowStock = len(d.Materials.LowStock())
		}
		return view, nil
	}
}

// projects shows every project to managers and only their own to everyone else.
func (d Deps) projects(ctx context.Context, s *Session) (any, error) {
	var (
		projects []model.Project
		err      error
	)
	if s.User.HasRole(model.RoleAdmin) || s.User.HasRole(model.RoleProjectManager) {
		projects, err = d.Projects.ListAll(ctx)
	} else {
		projects, err = d.Projects.ListForUser(ctx, s.User.ID)
	}
	if err != nil {
		return nil, err
	}
	return &ProjectsView{Projects: nonNil(projects), Statuses: model.ProjectStatuses}, nil
}

func (d Deps) rfis(ctx context.Context, s *Session) (any, error) {
	mine, err := d.Rfis.ListForUser(ctx, s.User.ID)
	if err != nil {
		return nil, err
	}
	overdue, err := d.Rfis.ListOverdue(ctx)
	if err != nil {
		return nil, err
	}
	return &RfisView{Mine: nonNil(mine), Overdue: nonNil(overdue)}, nil
}

func (d Deps) submittals(ctx context.Context, s *Session) (any, error) {
	mine, err := d.Submittals.ListForUser(ctx, s.User.ID)
	if err != nil {
		return nil, err
	}
	overdue, err := d.Submittals.ListOverdue(ctx)
	if err != nil {
		return nil, err
	}
	return &SubmittalsView{Mine: nonNil(mine), Overdue: nonNil(overdue)}, nil
}

func (d Deps) equipment(now func() time.Time) func(context.Context, *Session) (any, error) {
	return func(context.Context, *Session) (any, error) {
		return &EquipmentView{
			Items:              d.Equipment.List(),
			MaintenanceOverdue: nonNil(d.Equipment.MaintenanceOverdue(now())),
			DailyRentalCost:    d.Equipment.DailyRentalCost(),
		}, nil
	}
}

func (d Deps) materials(context.Context, *Session) (any, error) {
	return &MaterialsView{
		Items:      d.Materials.List(),
		LowStock:   nonNil(d.Materials.LowStock()),
		TotalValue: d.Materials.TotalValue(),
	}, nil
}

func (d Deps) documents(now func() time.Time) func(context.Context, *Session) (any, error) {
	return func(context.Context, *Session) (any, error) {
		return &DocumentsView{
			Items:         d.Documents.List(),
			NeedingReview: nonNil(d.Documents.NeedingReview()),
			Expired:       nonNil(d.Documents.Expired(now())),
			CheckedOut:    nonNil(d.Documents.Filter(inventory.Document.IsCheckedOut)),
		}, nil
	}
}

func (d Deps) photos(context.Context, *Session) (any, error) {
	return &PhotosView{
		Items:         d.Photos.List(),
		PendingReview: nonNil(d.Photos.PendingReview()),
		ApprovalRate:  d.Photos.ApprovalRate(),
	}, nil
}

func (d Deps) transmittals(context.Context, *Session) (any, error) {
	return &TransmittalsView{
		Items:                 d.Transmittals.List(),
		PendingAcknowledgment: nonNil(d.Transmittals.PendingAcknowledgment()),
	}, nil
}

func (d Deps) dailyReports(context.Context, *Session) (any, error) {
	view := &DailyReportsView{
		Items:          d.DailyReports.List(),
		TotalCrewHours: d.DailyReports.TotalCrewHours(),
	}
	if latest, ok := d.DailyReports.Latest(); ok {
		view.Latest = &latest
	}
	return view, nil
}

func (d Deps) users(ctx context.Context, _ *Session) (any, error) {
	users, err := d.Users.ListUsers(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	return nonNil(users), nil
}

func (d Deps) settings(ctx context.Context, _ *Session) (any, error) {
	settings, err := d.Settings.All(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(settings), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
