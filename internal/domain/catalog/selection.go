package catalog

import (
	"strings"
	"unicode/utf8"
)

// Selection is a shopper's choice of variation axes. An empty field means
// no choice on that axis.
type Selection struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// Trimmed returns the selection with surrounding whitespace removed.
func (s Selection) Trimmed() Selection {
	return Selection{Size: strings.TrimSpace(s.Size), Color: strings.TrimSpace(s.Color)}
}

// Complete reports whether every axis declared by p has a choice.
func (s Selection) Complete(p *Product) bool {
	if len(p.Sizes) > 0 && strings.TrimSpace(s.Size) == "" {
		return false
	}
	if len(p.Colors) > 0 && strings.TrimSpace(s.Color) == "" {
		return false
	}
	return true
}

// SameValue compares two axis values ignoring case and surrounding whitespace.
func SameValue(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// MatchVariation finds the variation of p selected by s, comparing only the
// axes p declares.
func MatchVariation(p *Product, s Selection) (*Variation, bool) {
	if len(p.Variations) == 0 || !p.HasAxes() {
		return nil, false
	}
	for i := range p.Variations {
		v := &p.Variations[i]
		if len(p.Sizes) > 0 && !SameValue(v.Size, s.Size) {
			continue
		}
		if len(p.Colors) > 0 && !SameValue(v.Color, s.Color) {
			continue
		}
		return v, true
	}
	return nil, false
}

// Canonical rewrites s in the spelling p uses. Axes p does not declare are
// cleared; declared values take the matched variation's spelling, or the
// declared option's, so "m" and " M " select the same line as "M".
func Canonical(p *Product, s Selection) Selection {
	s = s.Trimmed()
	if len(p.Sizes) == 0 {
		s.Size = ""
	}
	if len(p.Colors) == 0 {
		s.Color = ""
	}
	if v, ok := MatchVariation(p, s); ok {
		if s.Size != "" {
			s.Size = strings.TrimSpace(v.Size)
		}
		if s.Color != "" {
			s.Color = strings.TrimSpace(v.Color)
		}
		return s
	}
	s.Size = declared(p.Sizes, s.Size)
	s.Color = declared(p.Colors, s.Color)
	return s
}

func declared(options []string, value string) string {
	for _, o := range options {
		if SameValue(o, value) {
			return strings.TrimSpace(o)
		}
	}
	return value
}

const maxTermLen = 30

// SanitizeTerm normalizes a free-text search term: trimmed, lowercased,
// markup characters removed and capped at 30 characters.
func SanitizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	term = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '{', '}', '[', ']', '\\', '/', '|':
			return -1
		}
		return r
	}, term)
	if utf8.RuneCountInString(term) > maxTermLen {
		term = string([]rune(term)[:maxTermLen])
	}
	return term
}

// Search returns the products whose name, SKU or category contains term.
func Search(products []Product, term string) []Product {
	term = SanitizeTerm(term)
	if term == "" {
		return products
	}
	var out []Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.SKU), term) ||
			strings.Contains(strings.ToLower(p.Category), term) {
			out = append(out, p)
		}
	}
	return out
}
