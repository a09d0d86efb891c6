package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"helmsman/internal/domain"
)

// Datetime answers current-time questions and day arithmetic between two
// dates. Pure computation, no external calls.
type Datetime struct {
	now func() time.Time
}

// NewDatetime creates the datetime tool.
func NewDatetime() *Datetime {
	return &Datetime{now: time.Now}
}

func (d *Datetime) Name() string { return "datetime" }

var isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

func (d *Datetime) Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult {
	if dates := isoDateRe.FindAllString(query, 3); len(dates) >= 2 {
		return d.dateDifference(dates[0], dates[1])
	}
	return d.currentTime(query)
}

func (d *Datetime) dateDifference(a, b string) domain.ToolResult {
	d1, err := time.Parse("2006-01-02", a)
	if err != nil {
		return domain.ToolFailure(fmt.Sprintf("invalid date %q: use YYYY-MM-DD", a))
	}
	d2, err := time.Parse("2006-01-02", b)
	if err != nil {
		return domain.ToolFailure(fmt.Sprintf("invalid date %q: use YYYY-MM-DD", b))
	}

	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return domain.ToolSuccess(fmt.Sprintf("There are %d days between %s and %s.", days, a, b))
}

func (d *Datetime) currentTime(query string) domain.ToolResult {
	zone := extractZone(query)
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return domain.ToolFailure(fmt.Sprintf("unknown timezone %q", zone))
	}

	now := d.now().In(loc)
	return domain.ToolSuccess(fmt.Sprintf("Current date and time in %s: %s.", zone, now.Format("2006-01-02 15:04:05 MST")))
}

// extractZone looks for an IANA zone name like "America/Sao_Paulo" in the
// query; defaults to UTC.
var zoneRe = regexp.MustCompile(`[A-Z][A-Za-z_]+/[A-Z][A-Za-z_]+`)

func extractZone(query string) string {
	if m := zoneRe.FindString(query); m != "" {
		return m
	}
	if strings.Contains(strings.ToUpper(query), "UTC") {
		return "UTC"
	}
	return "UTC"
}
