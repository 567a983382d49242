package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/platform/storage"
)

// Uploader presigns cover uploads.
type Uploader interface {
	PresignUpload(ctx context.Context, key, contentType string) (storage.Upload, error)
}

// Service manages posts.
type Service struct {
	repo      Repository
	uploads   Uploader
	validator *validator.Validate
	now       func() time.Time
}

// NewService constructs a Service. uploads may be nil.
func NewService(repo Repository, uploads Uploader) *Service {
	return &Service{repo: repo, uploads: uploads, validator: httpx.NewValidator(), now: time.Now}
}

type postInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"required"`
	Author      string `json:"author" validate:"max=128"`
	Category    string `json:"category" validate:"max=64"`
	CoverImage  string `json:"coverImage" validate:"omitempty,url"`
	WrittenDate string `json:"writtenDate" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Service) validate(p Post) error {
	return httpx.Validate(s.validator, postInput{
		Title:       p.Title,
		Content:     p.Content,
		Author:      p.Author,
		Category:    p.Category,
		CoverImage:  p.CoverImage,
		WrittenDate: p.WrittenDate,
	})
}

// List returns posts newest first, optionally of one category.
func (s *Service) List(ctx context.Context, category string, page, perPage int) ([]Post, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(category), perPage, (page-1)*perPage)
}

func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a post; the written date defaults to today and the author to
// the acting user.
func (s *Service) Create(ctx context.Context, p Post, author string) (Post, error) {
	p = trim(p)
	if p.Author == "" {
		p.Author = author
	}
	if p.WrittenDate == "" {
		p.WrittenDate = s.now().UTC().Format("2006-01-02")
	}
	if err := s.validate(p); err != nil {
		return Post{}, err
	}
	p.ID = uuid.NewString()
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, p Post) (Post, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	p = trim(p)
	p.ID = current.ID
	if p.Author == "" {
		p.Author = current.Author
	}
	if p.WrittenDate == "" {
		p.WrittenDate = current.WrittenDate
	}
	if err := s.validate(p); err != nil {
		return Post{}, err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: post id is required", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// CoverUpload presigns a cover image upload under a fresh folder.
func (s *Service) CoverUpload(ctx context.Context, fileName, contentType string) (storage.Upload, error) {
	if s.uploads == nil {
		return storage.Upload{}, errors.New("blog: object storage not configured")
	}
	if strings.TrimSpace(fileName) == "" {
		return storage.Upload{}, &httpx.FieldErrors{Fields: map[string]string{"fileName": "is required"}}
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return storage.Upload{}, &httpx.FieldErrors{Fields: map[string]string{"contentType": "must be an image type"}}
	}
	return s.uploads.PresignUpload(ctx, storage.BlogCoverKey(uuid.NewString(), fileName), contentType)
}

func trim(p Post) Post {
	p.Title = strings.TrimSpace(p.Title)
	p.Author = strings.TrimSpace(p.Author)
	p.Category = strings.TrimSpace(p.Category)
	p.CoverImage = strings.TrimSpace(p.CoverImage)
	return p
}
