package aqi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BuildReport fetches every city and renders the mail body. A city that
// fails keeps its line in the report so the recipient sees the gap.
func BuildReport(ctx context.Context, c *Client, cities []string, log *slog.Logger) string {
	var b strings.Builder
	b.WriteString("Daily Air Quality Report\n\n")
	for _, city := range cities {
		n, ok, err := c.Fetch(ctx, city)
		switch {
		case err != nil:
			log.Error("aqi fetch", slog.String("city", city), slog.Any("err", err))
			fmt.Fprintf(&b, "%s: Error fetching data\n", titleCase(city))
		case !ok:
			fmt.Fprintf(&b, "%s: Data not available\n", titleCase(city))
		default:
			fmt.Fprintf(&b, "%s: AQI %d\n", titleCase(city), n)
		}
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
