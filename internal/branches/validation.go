package branches

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/anotherstories/storehq/internal/platform/httpx"
)

type branchInput struct {
	ID      string `json:"id" validate:"omitempty,max=64"`
	Name    string `json:"name" validate:"required,max=128"`
	Manager string `json:"manager" validate:"max=128"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=256"`
	Founded string `json:"founded" validate:"omitempty,datetime=2006-01-02"`
	Status  string `json:"status" validate:"omitempty,oneof=Active Closed"`
}

func (s *Service) validate(b Branch) error {
	return httpx.Validate(s.validator, branchInput{
		ID:      b.ID,
		Name:    strings.TrimSpace(b.Name),
		Manager: b.Manager,
		Phone:   b.Phone,
		Email:   b.Email,
		Address: b.Address,
		Founded: b.Founded,
		Status:  string(b.Status),
	})
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug derives a branch id from its name: accents are dropped, letters are
// lowercased and every other run of characters becomes a single dash.
func Slug(name string) string {
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
