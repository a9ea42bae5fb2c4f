// Package seed loads sample projects, RFIs and submittals from a YAML fixture.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
	"gcpanel/internal/repository"
	"gcpanel/internal/service"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the root of a seed file.
type Fixture struct {
	Projects []Project `yaml:"projects"`
}

type Project struct {
	Code        string      `yaml:"code"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Status      string      `yaml:"status"`
	Location    string      `yaml:"location"`
	Budget      string      `yaml:"budget"`
	StartDate   *time.Time  `yaml:"start_date"`
	EndDate     *time.Time  `yaml:"end_date"`
	Milestones  []Milestone `yaml:"milestones"`
	Rfis        []Rfi       `yaml:"rfis"`
	Submittals  []Submittal `yaml:"submittals"`
}

type Milestone struct {
	Name    string     `yaml:"name"`
	DueDate *time.Time `yaml:"due_date"`
}

// Rfi is a seeded RFI. Lifecycle lists the statuses it moves through after
// creation; answered uses Response as the answer.
type Rfi struct {
	Number    string            `yaml:"number"`
	Subject   string            `yaml:"subject"`
	Question  string            `yaml:"question"`
	Priority  string            `yaml:"priority"`
	Category  string            `yaml:"category"`
	DueDate   *time.Time        `yaml:"due_date"`
	Lifecycle []model.RfiStatus `yaml:"lifecycle"`
	Response  string            `yaml:"response"`
}

// Submittal is a seeded submittal. Review decisions in Lifecycle carry Comments.
type Submittal struct {
	Number      string                  `yaml:"number"`
	Title       string                  `yaml:"title"`
	Description string                  `yaml:"description"`
	SpecSection string                  `yaml:"spec_section"`
	Type        string                  `yaml:"type"`
	DueDate     *time.Time              `yaml:"due_date"`
	Lifecycle   []model.SubmittalStatus `yaml:"lifecycle"`
	Comments    string                  `yaml:"comments"`
}

// Load reads the fixture at path, or the built-in one when path is empty.
func Load(path string) (*Fixture, error) {
	if path == "" {
		return Parse(defaultFixture)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, apperrors.Validation("seed fixture: %v", err)
	}

	codes := make(map[string]bool, len(f.Projects))
	for i, p := range f.Projects {
		if p.Code == "" || p.Name == "" {
			return nil, apperrors.Validation("seed fixture: project %d needs a code and a name", i+1)
		}
		if codes[p.Code] {
			return nil, apperrors.Validation("seed fixture: duplicate project code %q", p.Code)
		}
		codes[p.Code] = true
		for _, r := range p.Rfis {
			if r.Number == "" || r.Subject == "" {
				return nil, apperrors.Validation("seed fixture: %s has an RFI without number or subject", p.Code)
			}
		}
		for _, s := range p.Submittals {
			if s.Number == "" || s.Title == "" {
				return nil, apperrors.Validation("seed fixture: %s has a submittal without number or title", p.Code)
			}
		}
	}
	return &f, nil
}

// Result counts what Apply did.
type Result struct {
	ProjectsCreated   int
	ProjectsUpdated   int
	RfisCreated       int
	RfisUpdated       int
	SubmittalsCreated int
	SubmittalsUpdated int
}

// Seeder upserts fixtures: projects by code, documents by project and number.
type Seeder struct {
	projects      service.ProjectService
	rfis          service.RfiService
	rfiRepo       repository.RfiRepository
	submittals    service.SubmittalService
	submittalRepo repository.SubmittalRepository
	log           *slog.Logger
}

func NewSeeder(
	projects service.ProjectService,
	rfis service.RfiService,
	rfiRepo repository.RfiRepository,
	submittals service.SubmittalService,
	submittalRepo repository.SubmittalRepository,
) *Seeder {
	return &Seeder{
		projects:      projects,
		rfis:          rfis,
		rfiRepo:       rfiRepo,
		submittals:    submittals,
		submittalRepo: submittalRepo,
		log:           slog.Default().With(slog.String("component", "seed")),
	}
}

// Apply writes f as actor. Existing documents get their fields refreshed but
// keep their current status.
func (s *Seeder) Apply(ctx context.Context, actor *model.User, f *Fixture) (*Result, error) {
	res := &Result{}
	for _, p := range f.Projects {
		project, created, err := s.upsertProject(ctx, actor, p)
		if err != nil {
			return res, fmt.Errorf("project %s: %w", p.Code, err)
		}
		if created {
			res.ProjectsCreated++
			for _, m := range p.Milestones {
				if _, err := s.projects.AddMilestone(ctx, actor, project.ID, service.MilestoneInput{Name: m.Name, DueDate: m.DueDate}); err != nil {
					return res, fmt.Errorf("project %s milestone %q: %w", p.Code, m.Name, err)
				}
			}
		} else {
			res.ProjectsUpdated++
		}

		for _, r := range p.Rfis {
			created, err := s.upsertRfi(ctx, actor, project.ID, r)
			if err != nil {
				return res, fmt.Errorf("project %s %s: %w", p.Code, r.Number, err)
			}
			if created {
				res.RfisCreated++
			} else {
				res.RfisUpdated++
			}
		}
		for _, sub := range p.Submittals {
			created, err := s.upsertSubmittal(ctx, actor, project.ID, sub)
			if err != nil {
				return res, fmt.Errorf("project %s %s: %w", p.Code, sub.Number, err)
			}
			if created {
				res.SubmittalsCreated++
			} else {
				res.SubmittalsUpdated++
			}
		}
		s.log.Info("seeded project", slog.String("code", p.Code), slog.Bool("created", created),
			slog.Int("rfis", len(p.Rfis)), slog.Int("submittals", len(p.Submittals)))
	}
	return res, nil
}

func (s *Seeder) upsertProject(ctx context.Context, actor *model.User, p Project) (*model.Project, bool, error) {
	fields := map[string]any{"name": p.Name}
	setIf(fields, "description", p.Description)
	setIf(fields, "status", p.Status)
	setIf(fields, "location", p.Location)
	setIf(fields, "budget", p.Budget)
	if p.StartDate != nil {
		fields["start_date"] = *p.StartDate
	}
	if p.EndDate != nil {
		fields["end_date"] = *p.EndDate
	}

	existing, err := s.projects.GetByCode(ctx, p.Code)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		fields["code"] = p.Code
		project, err := s.projects.Create(ctx, actor, fields)
		return project, true, err
	case err != nil:
		return nil, false, err
	}
	project, err := s.projects.Update(ctx, actor, existing.ID, fields)
	return project, false, err
}

func (s *Seeder) upsertRfi(ctx context.Context, actor *model.User, projectID uint, r Rfi) (bool, error) {
	fields := map[string]any{"subject": r.Subject}
	setIf(fields, "question", r.Question)
	setIf(fields, "priority", r.Priority)
	setIf(fields, "category", r.Category)
	if r.DueDate != nil {
		fields["due_date"] = *r.DueDate
	}

	existing, err := s.rfiRepo.GetByNumber(ctx, projectID, r.Number)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		return false, err
	default:
		_, err := s.rfis.Update(ctx, actor, existing.ID, fields)
		return false, err
	}

	fields["number"] = r.Number
	rfi, err := s.rfis.Create(ctx, actor, projectID, fields)
	if err != nil {
		return false, err
	}
	for _, status := range r.Lifecycle {
		if status == model.RfiStatusAnswered && r.Response != "" {
			_, err = s.rfis.Respond(ctx, actor, rfi.ID, r.Response)
		} else {
			_, err = s.rfis.UpdateStatus(ctx, actor, rfi.ID, status)
		}
		if err != nil {
			return true, err
		}
	}
	return true, nil
}

func (s *Seeder) upsertSubmittal(ctx context.Context, actor *model.User, projectID uint, sub Submittal) (bool, error) {
	fields := map[string]any{"title": sub.Title}
	setIf(fields, "description", sub.Description)
	setIf(fields, "spec_section", sub.SpecSection)
	setIf(fields, "type", sub.Type)
	if sub.DueDate != nil {
		fields["due_date"] = *sub.DueDate
	}

	existing, err := s.submittalRepo.GetByNumber(ctx, projectID, sub.Number)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		return false, err
	default:
		_, err := s.submittals.Update(ctx, actor, existing.ID, fields)
		return false, err
	}

	fields["number"] = sub.Number
	created, err := s.submittals.Create(ctx, actor, projectID, fields)
	if err != nil {
		return false, err
	}
	for _, status := range sub.Lifecycle {
		if slices.Contains(service.ReviewDecisions, status) {
			_, err = s.submittals.Review(ctx, actor, created.ID, status, sub.Comments)
		} else {
			_, err = s.submittals.UpdateStatus(ctx, actor, created.ID, status)
		}
		if err != nil {
			return true, err
		}
	}
	return true, nil
}

func setIf(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
