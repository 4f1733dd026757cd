package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComponents(t *testing.T) {
	comps := ParseComponents("freq=weekly; byday=MO,WE ;;junk; =x;X-Name=a=b")

	assert.Equal(t, Components{
		"FREQ":   "weekly",
		"BYDAY":  "MO,WE",
		"X-NAME": "a=b",
	}, comps)
}

func TestParseRule_NonRecurring(t *testing.T) {
	for _, s := range []string{"", "   ", "FREQ=", "INTERVAL=2", ";;;"} {
		t.Run(s, func(t *testing.T) {
			assert.True(t, ParseRule(s, time.UTC).IsAbsent())
		})
	}
}

func TestParseRule_Variants(t *testing.T) {
	tests := []struct {
		rule string
		want Frequency
	}{
		{"FREQ=DAILY", Daily},
		{"FREQ=weekly", Weekly},
		{"FREQ=Monthly", Monthly},
		{"FREQ=YEARLY", Yearly},
		{"FREQ=SECONDLY", Daily},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			rule, ok := ParseRule(tt.rule, time.UTC).Get()
			require.True(t, ok)
			assert.Equal(t, tt.want, rule.Frequency())
			assert.Equal(t, 1, rule.Limits().Interval)
		})
	}
}

func TestParseRule_Weekly(t *testing.T) {
	rule, ok := ParseRule("FREQ=WEEKLY;BYDAY=FR,su,MO;WKST=SU", time.UTC).Get()
	require.True(t, ok)

	weekly, ok := rule.(WeeklyRule)
	require.True(t, ok)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Monday, time.Friday}, weekly.ByDay)
	assert.Equal(t, time.Sunday, weekly.WeekStart)
}

func TestParseRule_WeeklyDefaultsToMonday(t *testing.T) {
	rule, ok := ParseRule("FREQ=WEEKLY;BYDAY=SU,MO;WKST=XX", time.UTC).Get()
	require.True(t, ok)

	weekly := rule.(WeeklyRule)
	assert.Equal(t, time.Monday, weekly.WeekStart)
	assert.Equal(t, []time.Weekday{time.Monday, time.Sunday}, weekly.ByDay)
}

func TestParseRule_MonthDays(t *testing.T) {
	rule, ok := ParseRule("FREQ=MONTHLY;BYMONTHDAY=1,-1,0,40,x, 15", time.UTC).Get()
	require.True(t, ok)
	assert.Equal(t, []int{1, -1, 15}, rule.(MonthlyRule).ByMonthDay)
}

func TestParseRule_Bounds(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)

	rule, ok := ParseRule("FREQ=DAILY;INTERVAL=3;COUNT=7;UNTIL=2026-03-01;X-FOO=bar", loc).Get()
	require.True(t, ok)

	b := rule.Limits()
	assert.Equal(t, 3, b.Interval)
	assert.Equal(t, 7, b.Count.MustGet())
	assert.True(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc).Equal(b.Until.MustGet()))
	assert.Equal(t, Components{"X-FOO": "bar"}, b.Extra)
}

func TestParseDateTime(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-03-01T12:00:00Z", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"2026-03-01T12:00:00+02:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"20260301T120000Z", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"20260301T120000", time.Date(2026, 3, 1, 12, 0, 0, 0, loc)},
		{"2026-03-01T12:00:00", time.Date(2026, 3, 1, 12, 0, 0, 0, loc)},
		{"2026-03-01 12:00", time.Date(2026, 3, 1, 12, 0, 0, 0, loc)},
		{" 2026-03-01 ", time.Date(2026, 3, 1, 0, 0, 0, 0, loc)},
		{"20260301", time.Date(2026, 3, 1, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDateTime(tt.raw, loc).Get()
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	res := ParseDateTime("next tuesday", time.UTC)
	assert.True(t, res.IsError())

	var perr *time.ParseError
	assert.ErrorAs(t, res.Error(), &perr)
}

func TestRule_String(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"freq=daily", "FREQ=DAILY"},
		{"FREQ=DAILY;INTERVAL=1;COUNT=abc", "FREQ=DAILY"},
		{"FREQ=WEEKLY;WKST=SU;BYDAY=FR,MO;COUNT=4;INTERVAL=2;X-NAME=a", "FREQ=WEEKLY;INTERVAL=2;COUNT=4;BYDAY=MO,FR;WKST=SU;X-NAME=a"},
		{"FREQ=MONTHLY;BYMONTHDAY=15", "FREQ=MONTHLY;BYMONTHDAY=15"},
		{"FREQ=YEARLY;UNTIL=2030-01-01", "FREQ=YEARLY;UNTIL=2030-01-01"},
		{"FREQ=DAILY;UNTIL=20260301T120000Z", "FREQ=DAILY;UNTIL=20260301T120000Z"},
		{"FREQ=HOURLY", "FREQ=DAILY"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rule, ok := ParseRule(tt.in, time.UTC).Get()
			require.True(t, ok)
			assert.Equal(t, tt.want, rule.String())

			again, ok := ParseRule(rule.String(), time.UTC).Get()
			require.True(t, ok)
			assert.Equal(t, rule, again)
		})
	}
}
