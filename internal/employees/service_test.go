package employees

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/platform/storage"
	"github.com/anotherstories/storehq/internal/rbac"
)

type memRepo struct {
	items  map[string]Employee
	hashes map[string]string
	last   ListFilters
}

func newMemRepo(items ...Employee) *memRepo {
	m := &memRepo{items: make(map[string]Employee), hashes: make(map[string]string)}
	for _, e := range items {
		m.items[e.ID] = e
	}
	return m
}

func (m *memRepo) List(ctx context.Context, filters ListFilters) ([]Employee, int, error) {
	m.last = filters
	out := make([]Employee, 0)
	for _, e := range m.items {
		if filters.Branch == "" || e.BranchID == filters.Branch {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id string) (Employee, error) {
	e, ok := m.items[id]
	if !ok {
		return Employee{}, httpx.ErrNotFound
	}
	return e, nil
}

func (m *memRepo) Create(ctx context.Context, e Employee, hash string) (Employee, error) {
	m.items[e.ID] = e
	m.hashes[e.ID] = hash
	return e, nil
}

func (m *memRepo) Update(ctx context.Context, e Employee) (Employee, error) {
	m.items[e.ID] = e
	return e, nil
}

func (m *memRepo) SetAvatar(ctx context.Context, id, url string) error {
	e, ok := m.items[id]
	if !ok {
		return httpx.ErrNotFound
	}
	e.Avatar = url
	m.items[id] = e
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memRepo) Birthdays(ctx context.Context, month time.Month, day int) ([]Employee, error) {
	out := make([]Employee, 0)
	for _, e := range m.items {
		if b, err := time.Parse("2006-01-02", e.Birthday); err == nil && b.Month() == month && b.Day() == day {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubUploader struct {
	key string
}

func (s *stubUploader) PresignUpload(ctx context.Context, key, contentType string) (storage.Upload, error) {
	s.key = key
	return storage.Upload{URL: "https://bucket.test/" + key + "?sig", Method: "PUT", Key: key, PublicURL: "https://cdn.test/" + key}, nil
}

var (
	hq      = rbac.Principal{UserID: "hq", Access: rbac.AccessHQ, Role: rbac.RoleHQStaff}
	manager = rbac.Principal{UserID: "m1", Access: rbac.AccessStore, Role: rbac.RoleBranchManager, BranchID: "paris"}
	worker  = rbac.Principal{UserID: "e1", Access: rbac.AccessStaff, Role: rbac.RolePartTime, BranchID: "paris"}
)

func sampleEmployees() []Employee {
	return []Employee{
		{ID: "m1", FirstName: "Ana", Email: "ana@example.com", BranchID: "paris", Role: rbac.RoleBranchManager, SalaryType: SalaryMonthly, SalaryAmount: decimal.NewFromInt(3000), IsActive: true},
		{ID: "e1", FirstName: "Luc", Email: "luc@example.com", BranchID: "paris", Role: rbac.RolePartTime, SalaryType: SalaryHourly, SalaryAmount: decimal.NewFromInt(14), Birthday: "1990-04-12", IsActive: true},
		{ID: "e2", FirstName: "Gia", Email: "gia@example.com", BranchID: "rome", Role: rbac.RoleFullTime, SalaryType: SalaryMonthly, SalaryAmount: decimal.NewFromInt(2500), Birthday: "1985-04-12", IsActive: true},
	}
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Employee: Employee{FirstName: "Mia", Email: " Mia@Example.com ", BranchID: "paris", Role: rbac.RoleFullTime},
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "mia@example.com", created.Email)
	assert.Equal(t, SalaryMonthly, created.SalaryType)
	assert.True(t, created.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[created.ID]), []byte("correct horse")))
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Employee: Employee{Email: "bad", Role: "Boss", SalaryAmount: decimal.NewFromInt(-1)},
		Password: "short",
	})
	var fields *httpx.FieldErrors
	require.True(t, errors.As(err, &fields))
	for _, name := range []string{"firstName", "email", "role", "salaryAmount", "password"} {
		assert.Contains(t, fields.Fields, name)
	}
}

func TestListScopesStoreManager(t *testing.T) {
	repo := newMemRepo(sampleEmployees()...)
	svc := NewService(repo, nil, nil)

	items, total, err := svc.List(context.Background(), manager, ListFilters{Branch: "All"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "paris", repo.last.Branch)
	assert.Len(t, items, 2)

	_, _, err = svc.List(context.Background(), manager, ListFilters{Branch: "rome"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, total, err = svc.List(context.Background(), hq, ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "", repo.last.Branch)
}

func TestGetVisibility(t *testing.T) {
	svc := NewService(newMemRepo(sampleEmployees()...), nil, nil)

	_, err := svc.Get(context.Background(), manager, "e2")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	_, err = svc.Get(context.Background(), worker, "m1")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	e, err := svc.Get(context.Background(), worker, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Luc", e.FirstName)
}

func TestSelfUpdateKeepsRoleAndSalary(t *testing.T) {
	repo := newMemRepo(sampleEmployees()...)
	svc := NewService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), worker, "e1", Employee{
		FirstName: "Lucas", Email: "luc@example.com", Phone: "+33 1",
		Role: rbac.RoleHQStaff, SalaryAmount: decimal.NewFromInt(99), BranchID: "rome",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lucas", updated.FirstName)
	assert.Equal(t, "+33 1", updated.Phone)
	assert.Equal(t, rbac.RolePartTime, updated.Role)
	assert.True(t, decimal.NewFromInt(14).Equal(updated.SalaryAmount))
	assert.Equal(t, "paris", updated.BranchID)
}

func TestManagerUpdateRules(t *testing.T) {
	svc := NewService(newMemRepo(sampleEmployees()...), nil, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, manager, "e2", Employee{FirstName: "Gia", Email: "gia@example.com", BranchID: "rome", Role: rbac.RoleFullTime})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.Update(ctx, manager, "e1", Employee{FirstName: "Luc", Email: "luc@example.com", BranchID: "rome", Role: rbac.RolePartTime})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.Update(ctx, manager, "e1", Employee{FirstName: "Luc", Email: "luc@example.com", BranchID: "paris", Role: rbac.RoleHQStaff})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	updated, err := svc.Update(ctx, manager, "e1", Employee{FirstName: "Luc", Email: "luc@example.com", BranchID: "paris", Role: rbac.RoleFullTime, SalaryType: SalaryMonthly, SalaryAmount: decimal.NewFromInt(2200)})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleFullTime, updated.Role)
	assert.True(t, updated.IsActive)
}

func TestBirthdays(t *testing.T) {
	svc := NewService(newMemRepo(sampleEmployees()...), nil, nil)
	items, err := svc.Birthdays(context.Background(), time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAvatarUpload(t *testing.T) {
	repo := newMemRepo(sampleEmployees()...)
	uploads := &stubUploader{}
	svc := NewService(repo, uploads, nil)

	upload, err := svc.AvatarUpload(context.Background(), worker, "e1", "my photo.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "profiles/e1/my_photo.png", uploads.key)
	assert.Equal(t, "PUT", upload.Method)
	assert.Equal(t, "https://cdn.test/profiles/e1/my_photo.png", repo.items["e1"].Avatar)

	_, err = svc.AvatarUpload(context.Background(), worker, "e1", "doc.pdf", "application/pdf")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.AvatarUpload(context.Background(), worker, "m1", "a.png", "image/png")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = NewService(repo, nil, nil).AvatarUpload(context.Background(), hq, "e1", "a.png", "image/png")
	assert.Error(t, err)
}
