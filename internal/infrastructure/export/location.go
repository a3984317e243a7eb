package export

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

type timeLocation struct {
	loc *time.Location
}

func loadLocation(name string) (*timeLocation, error) {
	if name == "" {
		return &timeLocation{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", name, err)
	}
	return &timeLocation{loc: loc}, nil
}

func (l *timeLocation) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(l.loc).Format(timeLayout)
}
