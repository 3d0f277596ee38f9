package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

var ErrInvalidSort = errors.New("invalid sort")

// Sortable field names as they appear on the wire.
const (
	SortName      = "name"
	SortEmail     = "email"
	SortRole      = "role"
	SortStatus    = "status"
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a lowercase LIKE pattern matching term as a literal
// substring. Use it with ESCAPE '\'.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

var sortableFields = mapset.NewSet(SortName, SortEmail, SortRole, SortStatus, SortCreatedAt, SortUpdatedAt)

type SortField struct {
	Field string
	Desc  bool
}

// Filter selects users. Name, Email and Role are case-insensitive substring
// matches; Status is exact and defaults to true.
type Filter struct {
	Name   string
	Email  string
	Role   string
	Status *bool
	Page   int
	Limit  int
	Sort   []SortField
}

// Normalize applies the defaults: status true, page at least 1 and a limit
// between 1 and MaxLimit.
func (f Filter) Normalize() Filter {
	if f.Status == nil {
		active := true
		f.Status = &active
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Offset is the number of records skipped before the current page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ParseSort parses an ordering such as {"name":1,"createdAt":-1}. Directions
// may be 1, -1, "ASC" or "DESC". Key order is preserved.
func ParseSort(raw string) ([]SortField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidSort)
	}
	var fields []SortField
	seen := mapset.NewThreadUnsafeSet[string]()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
		}
		key, _ := tok.(string)
		if !sortableFields.Contains(key) {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidSort, key)
		}
		if !seen.Add(key) {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSort, key)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
		}
		desc, err := parseDirection(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidSort, key, err)
		}
		fields = append(fields, SortField{Field: key, Desc: desc})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSort, err)
	}
	return fields, nil
}

func parseDirection(tok json.Token) (bool, error) {
	switch v := tok.(type) {
	case json.Number:
		switch v.String() {
		case "1":
			return false, nil
		case "-1":
			return true, nil
		}
	case string:
		switch strings.ToUpper(v) {
		case "ASC":
			return false, nil
		case "DESC":
			return true, nil
		}
	}
	return false, fmt.Errorf("unsupported direction %v", tok)
}
