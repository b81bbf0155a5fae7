// Package datetime implements the clock and date conversion tools.
package datetime

import (
	"context"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const DefaultTimezone = "US/Pacific"

type Service struct {
	loc     *time.Location
	now     func() time.Time
	natural *when.Parser
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the datetime tools for the named IANA timezone. An empty
// name selects US/Pacific.
func NewService(timezone string, opts ...Option) (*Service, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", timezone)
	}

	natural := when.New(nil)
	natural.Add(en.All...)
	natural.Add(common.All...)

	s := &Service{loc: loc, now: time.Now, natural: natural}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// --- Core Logic Functions ---

func (s *Service) CurrentDatetime(_ context.Context, _ NoArgs) (CurrentDateTime, error) {
	return CurrentDateTime{
		CurrentDatetime: s.now().In(s.loc),
		Timezone:        s.loc.String(),
	}, nil
}

func (s *Service) ToMillis(_ context.Context, args PlaintextArgs) (DatetimeMillis, error) {
	t, err := s.Parse(args.InputDT)
	if err != nil {
		return DatetimeMillis{}, err
	}
	return DatetimeMillis{DatetimeMillis: strconv.FormatInt(t.UnixMilli(), 10)}, nil
}

func (s *Service) ToSeconds(_ context.Context, args PlaintextArgs) (DatetimeSeconds, error) {
	t, err := s.Parse(args.InputDT)
	if err != nil {
		return DatetimeSeconds{}, err
	}
	return DatetimeSeconds{DatetimeSeconds: strconv.FormatInt(t.Unix(), 10)}, nil
}

// Parse reads an absolute date first, then falls back to natural language
// relative to now. Times without a zone are in the service timezone.
func (s *Service) Parse(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, errors.New("empty date/time")
	}
	if t, err := dateparse.ParseIn(text, s.loc); err == nil {
		return t, nil
	}

	res, err := s.natural.Parse(text, s.now().In(s.loc))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse %q", text)
	}
	if res == nil {
		log.Debug().Str("input", text).Msg("no date/time recognized")
		return time.Time{}, errors.Errorf("could not understand %q as a date or time", text)
	}
	return res.Time, nil
}

func (s *Service) Tools() []toolkit.Tool {
	return []toolkit.Tool{
		toolkit.NewTool("get_current_datetime",
			"Returns the current date and time in the configured time zone (US Pacific by default).", s.CurrentDatetime),
		toolkit.NewTool("plaintext_datetime_to_millis",
			"Converts a human-readable date/time string to milliseconds since epoch. Useful for scheduling tasks.", s.ToMillis),
		toolkit.NewTool("plaintext_datetime_to_seconds",
			"Converts a human-readable date/time string to seconds since epoch.", s.ToSeconds),
	}
}
