// Package filters encodes the server-side stream filters into the
// subscription URL. The stream server does the filtering; the buffer never
// sees events the filters exclude.
package filters

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned for a filter value the server would reject.
var ErrInvalidFilter = errors.New("filters: invalid filter")

// Bot filter values.
const (
	BotAny   = ""
	BotOnly  = "true"
	BotHuman = "false"
)

// Filters narrows the stream. Zero values mean "no filter".
type Filters struct {
	Wiki      string `json:"wiki,omitempty" yaml:"wiki,omitempty"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Namespace *int   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Bot       string `json:"bot,omitempty" yaml:"bot,omitempty"`
	MinDelta  int    `json:"min_delta,omitempty" yaml:"min_delta,omitempty"`
}

// Default returns the filters the viewer starts with: human edits to
// English Wikipedia articles that changed at least 50 bytes.
func Default() Filters {
	ns := 0
	return Filters{
		Wiki:      "enwiki",
		Type:      "edit",
		Namespace: &ns,
		Bot:       BotHuman,
		MinDelta:  50,
	}
}

// Validate checks the type, bot, namespace and min-delta values.
func (f Filters) Validate() error {
	switch f.Type {
	case "", "edit", "new", "log", "categorize":
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, f.Type)
	}
	switch f.Bot {
	case BotAny, BotOnly, BotHuman:
	default:
		return fmt.Errorf("%w: bot must be \"true\", \"false\" or empty, got %q", ErrInvalidFilter, f.Bot)
	}
	if f.MinDelta < 0 {
		return fmt.Errorf("%w: min_delta must not be negative, got %d", ErrInvalidFilter, f.MinDelta)
	}
	if f.Namespace != nil && *f.Namespace < -2 {
		return fmt.Errorf("%w: namespace %d", ErrInvalidFilter, *f.Namespace)
	}
	return nil
}

// Values returns the filters as query parameters. Unset filters are
// omitted; min_delta is only sent when positive.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Wiki != "" {
		v.Set("wiki", f.Wiki)
	}
	if f.Type != "" {
		v.Set("type", f.Type)
	}
	if f.Namespace != nil {
		v.Set("namespace", strconv.Itoa(*f.Namespace))
	}
	if f.Bot == BotOnly || f.Bot == BotHuman {
		v.Set("bot", f.Bot)
	}
	if f.MinDelta > 0 {
		v.Set("min_delta", strconv.Itoa(f.MinDelta))
	}
	return v
}

// BuildURL adds the filter parameters to base. Parameters already on base
// are kept unless a filter sets the same key.
func BuildURL(base string, f Filters) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("filters: empty stream URL")
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("filters: parse stream URL: %w", err)
	}
	q := u.Query()
	for k, vs := range f.Values() {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Summary is a short human description for the status bar.
func (f Filters) Summary() string {
	var parts []string
	if f.Wiki != "" {
		parts = append(parts, f.Wiki)
	}
	if f.Type != "" {
		parts = append(parts, f.Type)
	}
	if f.Namespace != nil {
		parts = append(parts, "ns:"+strconv.Itoa(*f.Namespace))
	}
	switch f.Bot {
	case BotOnly:
		parts = append(parts, "bots")
	case BotHuman:
		parts = append(parts, "humans")
	}
	if f.MinDelta > 0 {
		parts = append(parts, fmt.Sprintf("Δ≥%d", f.MinDelta))
	}
	if len(parts) == 0 {
		return "all changes"
	}
	return strings.Join(parts, " · ")
}
