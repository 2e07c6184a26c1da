package search

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Type selects which collections a search covers.
type Type string

const (
	TypeAll      Type = "all"
	TypeNews     Type = "news"
	TypeSpeeches Type = "speeches"
	TypeContent  Type = "content"
	TypeMedia    Type = "media"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50
)

// ErrInvalidType is returned for a collection selector outside the known set.
var ErrInvalidType = errors.New("invalid search type")

// ParseType validates a selector; "" means all.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TypeAll, nil
	case TypeAll, TypeNews, TypeSpeeches, TypeContent, TypeMedia:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
	}
}

// Params are the inputs of one search request.
type Params struct {
	Query    string
	Type     Type
	Category string
	Page     int
	Limit    int
}

// Normalize fills defaults and clamps page and limit into range.
// Non-positive values fall back to the defaults.
func (p Params) Normalize() Params {
	if p.Type == "" {
		p.Type = TypeAll
	}
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// maxOffset bounds the row offset of a page. Pages past it are empty.
const maxOffset = math.MaxInt32

// offset is the index of the first row on the page, saturating at maxOffset.
func (p Params) offset() int {
	limit := max(p.Limit, 1)
	if p.Page <= 1 {
		return 0
	}
	if p.Page-1 > maxOffset/limit {
		return maxOffset
	}
	return (p.Page - 1) * limit
}

// FieldError describes one invalid request parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every invalid parameter of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid search parameters: " + strings.Join(parts, "; ")
}

// ParseParams reads search parameters from a URL query. Out-of-range page
// and limit values are clamped; malformed values are reported.
func ParseParams(values url.Values) (Params, error) {
	var fields []FieldError

	p := Params{
		Query:    strings.TrimSpace(values.Get("query")),
		Category: strings.TrimSpace(values.Get("category")),
		Page:     DefaultPage,
		Limit:    DefaultLimit,
	}

	if p.Query == "" {
		fields = append(fields, FieldError{Field: "query", Message: "must contain at least 1 character"})
	}

	t, err := ParseType(values.Get("type"))
	if err != nil {
		fields = append(fields, FieldError{
			Field:   "type",
			Message: "must be one of all, news, speeches, content, media",
		})
	}
	p.Type = t

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, FieldError{Field: "page", Message: "must be an integer"})
		} else {
			p.Page = n
		}
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, FieldError{Field: "limit", Message: "must be an integer"})
		} else {
			p.Limit = n
		}
	}

	if len(fields) > 0 {
		return Params{}, &ValidationError{Fields: fields}
	}
	return p.Normalize(), nil
}
