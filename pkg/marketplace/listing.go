package marketplace

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/odvcencio/snaplist/pkg/errors"
)

// Listing is an item for sale produced upstream. Its text is untrusted.
type Listing struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Categories is the category vocabulary listings are generated against.
var Categories = []string{
	"Electronics",
	"Furniture",
	"Clothing",
	"Home & Garden",
	"Sports",
	"Toys",
	"Books",
	"Auto Parts",
	"Other",
}

const (
	maxTitleLength       = 150
	maxDescriptionLength = 5000
)

// Normalize returns a copy with NFC-normalized text, control characters
// removed and surrounding whitespace trimmed. Newlines survive in the
// description only.
func (l Listing) Normalize() Listing {
	l.Title = cleanText(l.Title, false)
	l.Description = cleanText(l.Description, true)
	l.Category = cleanText(l.Category, false)
	l.ImageURL = strings.TrimSpace(l.ImageURL)
	return l
}

// Validate rejects listings that must not reach the browser.
func (l Listing) Validate() error {
	var problems []string
	if strings.TrimSpace(l.Title) == "" {
		problems = append(problems, "title is required")
	} else if len([]rune(l.Title)) > maxTitleLength {
		problems = append(problems, "title is too long")
	}
	if strings.TrimSpace(l.Description) == "" {
		problems = append(problems, "description is required")
	} else if len([]rune(l.Description)) > maxDescriptionLength {
		problems = append(problems, "description is too long")
	}
	if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
		problems = append(problems, "price must be a number")
	} else if l.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidListing, "invalid listing: "+strings.Join(problems, "; ")).
		WithContext("problems", len(problems)).
		WithRemediation("Fix the listing fields and post again")
}

// KnownCategory reports whether category is part of Categories, ignoring case.
func KnownCategory(category string) bool {
	for _, c := range Categories {
		if strings.EqualFold(c, strings.TrimSpace(category)) {
			return true
		}
	}
	return false
}

func cleanText(s string, keepNewlines bool) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' && keepNewlines:
			return r
		case r == '\r':
			return -1
		case r == '\t' || r == '\n':
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
