package library

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentflow/internal/domain"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// validateID rejects anything that is not a UUID before it reaches the store
func validateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid %s id %q", kind, id)}
	}
	return nil
}

func splitIDs(kind, csv string) ([]string, error) {
	var ids []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := validateID(kind, part); err != nil {
			return nil, err
		}
		ids = append(ids, part)
	}
	return ids, nil
}

// parseDateBound accepts RFC 3339 or YYYY-MM-DD. A bare upper-bound date
// covers the whole day.
func parseDateBound(field, s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("%s must be YYYY-MM-DD or RFC 3339", field)}
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
