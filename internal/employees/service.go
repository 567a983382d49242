package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/anotherstories/storehq/internal/auth"
	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/platform/storage"
	"github.com/anotherstories/storehq/internal/rbac"
)

// Uploader presigns avatar uploads.
type Uploader interface {
	PresignUpload(ctx context.Context, key, contentType string) (storage.Upload, error)
}

// Service implements employee management and its access rules.
type Service struct {
	repo      Repository
	uploads   Uploader
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a Service. uploads may be nil when object storage is
// not configured.
func NewService(repo Repository, uploads Uploader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, uploads: uploads, logger: logger, validator: httpx.NewValidator()}
}

type employeeInput struct {
	FirstName  string  `json:"firstName" validate:"required,max=64"`
	LastName   string  `json:"lastName" validate:"max=64"`
	Email      string  `json:"email" validate:"required,email"`
	BranchID   string  `json:"branchId" validate:"max=64"`
	Joined     string  `json:"joined" validate:"omitempty,datetime=2006-01-02"`
	Birthday   string  `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Phone      string  `json:"phone" validate:"max=32"`
	SalaryType string  `json:"salaryType" validate:"oneof=monthly hourly"`
	Salary     float64 `json:"salaryAmount" validate:"gte=0"`
	Password   string  `json:"password" validate:"omitempty,min=8"`
}

func (s *Service) validate(e Employee, password string) error {
	err := httpx.Validate(s.validator, employeeInput{
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		BranchID:   e.BranchID,
		Joined:     e.Joined,
		Birthday:   e.Birthday,
		Phone:      e.Phone,
		SalaryType: e.SalaryType,
		Salary:     e.SalaryAmount.InexactFloat64(),
		Password:   password,
	})
	if e.Role.Valid() {
		return err
	}
	fields := map[string]string{}
	var fe *httpx.FieldErrors
	if errors.As(err, &fe) {
		fields = fe.Fields
	} else if err != nil {
		return err
	}
	fields["role"] = "must be a known position"
	return &httpx.FieldErrors{Fields: fields}
}

// List returns a page of employees. Store principals only see their branch.
func (s *Service) List(ctx context.Context, p rbac.Principal, filters ListFilters) ([]Employee, int, error) {
	branch, err := p.ScopeBranch(filters.Branch)
	if err != nil {
		return nil, 0, err
	}
	if strings.EqualFold(branch, "All") {
		branch = ""
	}
	filters.Branch = branch
	return s.repo.List(ctx, filters)
}

// Get loads an employee the principal may see.
func (s *Service) Get(ctx context.Context, p rbac.Principal, id string) (Employee, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	if !canView(p, e) {
		return Employee{}, rbac.ErrForbidden
	}
	return e, nil
}

// Create adds an employee. A non-empty password is stored as a bcrypt hash.
func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	e := normalize(in.Employee)
	if err := s.validate(e, in.Password); err != nil {
		return Employee{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	hash := ""
	if in.Password != "" {
		var err error
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return Employee{}, fmt.Errorf("employees: hash password: %w", err)
		}
	}
	e.IsActive = true
	created, err := s.repo.Create(ctx, e, hash)
	if err != nil {
		return Employee{}, err
	}
	s.logger.Info("employee created", slog.String("employee_id", created.ID), slog.String("branch_id", created.BranchID))
	return created, nil
}

// Update applies changes according to who is editing. HQ edits anyone. A
// branch manager edits staff of their own branch and cannot move them out.
// Everybody else may only edit their own profile, without role, salary or
// branch changes.
func (s *Service) Update(ctx context.Context, p rbac.Principal, id string, changes Employee) (Employee, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	next := normalize(changes)
	next.ID = current.ID
	next.Avatar = current.Avatar
	next.IsActive = current.IsActive

	switch {
	case p.IsHQ():
	case p.Access == rbac.AccessStore && current.BranchID == p.BranchID:
		if next.BranchID != p.BranchID {
			return Employee{}, rbac.ErrForbidden
		}
		if next.Role == rbac.RoleHQStaff && current.Role != rbac.RoleHQStaff {
			return Employee{}, rbac.ErrForbidden
		}
	case p.UserID == current.ID:
		next.Role = current.Role
		next.SalaryType = current.SalaryType
		next.SalaryAmount = current.SalaryAmount
		next.BranchID = current.BranchID
	default:
		return Employee{}, rbac.ErrForbidden
	}
	if err := s.validate(next, ""); err != nil {
		return Employee{}, err
	}
	return s.repo.Update(ctx, next)
}

// Delete removes an employee account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: employee id is required", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// Birthdays lists active employees whose birthday falls on the day of date.
func (s *Service) Birthdays(ctx context.Context, date time.Time) ([]Employee, error) {
	return s.repo.Birthdays(ctx, date.Month(), date.Day())
}

// AvatarUpload presigns a profile picture upload and stores the resulting
// public URL as the employee avatar.
func (s *Service) AvatarUpload(ctx context.Context, p rbac.Principal, id, fileName, contentType string) (storage.Upload, error) {
	if s.uploads == nil {
		return storage.Upload{}, errors.New("employees: object storage not configured")
	}
	e, err := s.Get(ctx, p, id)
	if err != nil {
		return storage.Upload{}, err
	}
	if !p.IsHQ() && p.UserID != e.ID && !(p.Access == rbac.AccessStore && p.BranchID == e.BranchID) {
		return storage.Upload{}, rbac.ErrForbidden
	}
	if strings.TrimSpace(fileName) == "" {
		return storage.Upload{}, &httpx.FieldErrors{Fields: map[string]string{"fileName": "is required"}}
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return storage.Upload{}, &httpx.FieldErrors{Fields: map[string]string{"contentType": "must be an image type"}}
	}
	upload, err := s.uploads.PresignUpload(ctx, storage.ProfileKey(e.ID, fileName), contentType)
	if err != nil {
		return storage.Upload{}, err
	}
	if err := s.repo.SetAvatar(ctx, e.ID, upload.PublicURL); err != nil {
		return storage.Upload{}, err
	}
	return upload, nil
}

func canView(p rbac.Principal, e Employee) bool {
	switch {
	case p.IsHQ(), p.UserID == e.ID:
		return true
	case p.Access == rbac.AccessStore:
		return p.BranchID != "" && p.BranchID == e.BranchID
	default:
		return false
	}
}

func normalize(e Employee) Employee {
	e.ID = strings.TrimSpace(e.ID)
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	e.BranchID = strings.TrimSpace(e.BranchID)
	if e.SalaryType == "" {
		e.SalaryType = SalaryMonthly
	}
	return e
}
