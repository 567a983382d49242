package branches

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/sales"
)

type memRepo struct {
	items map[string]Branch
	last  ListFilters
}

func newMemRepo(items ...Branch) *memRepo {
	repo := &memRepo{items: make(map[string]Branch)}
	for _, b := range items {
		repo.items[b.ID] = b
	}
	return repo
}

func (m *memRepo) List(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	m.last = filters
	out := make([]Branch, 0, len(m.items))
	for _, b := range m.items {
		if filters.Status != "" && b.Status != filters.Status {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(b.Name+b.Manager+b.Address), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id string) (Branch, error) {
	b, ok := m.items[id]
	if !ok {
		return Branch{}, httpx.ErrNotFound
	}
	return b, nil
}

func (m *memRepo) Create(ctx context.Context, b Branch) (Branch, error) {
	if _, ok := m.items[b.ID]; ok {
		return Branch{}, httpx.ErrDuplicate
	}
	m.items[b.ID] = b
	return b, nil
}

func (m *memRepo) Update(ctx context.Context, b Branch) (Branch, error) {
	if _, ok := m.items[b.ID]; !ok {
		return Branch{}, httpx.ErrNotFound
	}
	m.items[b.ID] = b
	return b, nil
}

func (m *memRepo) SetStatus(ctx context.Context, id string, status Status, updatedBy string) (Branch, error) {
	b, ok := m.items[id]
	if !ok {
		return Branch{}, httpx.ErrNotFound
	}
	b.Status, b.UpdatedBy = status, updatedBy
	m.items[id] = b
	return b, nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memRepo) IDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Berlin Mitte":        "berlin-mitte",
		"  Café de Flore  ":   "cafe-de-flore",
		"Köln / Ehrenfeld #2": "koln-ehrenfeld-2",
		"!!!":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestCreateDerivesIDAndDefaultsStatus(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	created, err := svc.Create(context.Background(), Branch{Name: "Berlin Mitte", Email: "mitte@example.com"}, "hq@example.com")
	require.NoError(t, err)
	assert.Equal(t, "berlin-mitte", created.ID)
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, "hq@example.com", created.UpdatedBy)

	_, err = svc.Create(context.Background(), Branch{Name: "Berlin Mitte"}, "hq")
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	_, err := svc.Create(context.Background(), Branch{Email: "nope", Founded: "2020/01/01"}, "hq")

	var fields *httpx.FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields.Fields, "name")
	assert.Contains(t, fields.Fields, "email")
	assert.Contains(t, fields.Fields, "founded")

	_, err = svc.Create(context.Background(), Branch{Name: "!!!"}, "hq")
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields.Fields, "id")
}

func TestCreateRejectsAllBranchesID(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	for _, b := range []Branch{{Name: "All"}, {ID: "ALL", Name: "Flagship"}} {
		_, err := svc.Create(context.Background(), b, "hq")
		var fields *httpx.FieldErrors
		require.True(t, errors.As(err, &fields), b.Name)
		assert.Equal(t, sales.ReservedBranchMessage, fields.Fields["id"])
	}
}

func TestToggleStatus(t *testing.T) {
	svc := NewService(newMemRepo(Branch{ID: "paris", Name: "Paris", Status: StatusActive}), nil)

	b, err := svc.ToggleStatus(context.Background(), "paris", "hq")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, b.Status)

	b, err = svc.ToggleStatus(context.Background(), "paris", "hq")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, b.Status)

	_, err = svc.ToggleStatus(context.Background(), "nowhere", "hq")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	_, _, err := svc.List(context.Background(), ListFilters{Status: "Open"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateRecordsActor(t *testing.T) {
	repo := newMemRepo(Branch{ID: "paris", Name: "Paris", Status: StatusActive})
	svc := NewService(repo, nil)

	updated, err := svc.Update(context.Background(), "paris", Branch{Name: "Paris Marais", Manager: "Ana"}, "hq@example.com")
	require.NoError(t, err)
	assert.Equal(t, "paris", updated.ID)
	assert.Equal(t, "Paris Marais", repo.items["paris"].Name)
	assert.Equal(t, "hq@example.com", repo.items["paris"].UpdatedBy)
}
