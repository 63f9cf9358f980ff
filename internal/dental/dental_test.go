package dental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"09171234567", true},
		{"0917-123-4567", true},
		{"(0917) 123 4567", true},
		{"9171234567", false},
		{"091712345678", false},
		{"08171234567", false},
		{"+639171234567", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidPhone(tt.phone), "phone %q", tt.phone)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ana.santos@gmail.com"))
	assert.True(t, ValidEmail("Ana@Yahoo.com"))
	assert.True(t, ValidEmail(" j_doe+dental@outlook.com "))
	assert.False(t, ValidEmail("ana@company.ph"))
	assert.False(t, ValidEmail("ana@gmail.co"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("ana@sub.gmail.com"))
}

func TestWeeklyRecurrenceExpandsToIndependentDates(t *testing.T) {
	r := &Recurrence{Pattern: RecurWeekly, Occurrences: 3}
	dates, err := r.Expand("2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-06", "2025-01-13", "2025-01-20"}, dates)
}

func TestRecurrenceVariants(t *testing.T) {
	dates, err := (&Recurrence{Pattern: RecurMonthly, Occurrences: 3}).Expand("2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-15", "2025-02-15", "2025-03-15"}, dates)

	dates, err = (&Recurrence{Pattern: RecurMonthly, Occurrences: 4}).Expand("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30"}, dates)

	dates, err = (&Recurrence{Pattern: RecurMonthly, Occurrences: 2}).Expand("2024-01-30")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-30", "2024-02-29"}, dates)

	dates, err = (&Recurrence{Pattern: RecurBiweekly, Occurrences: 2}).Expand("2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-03", "2025-03-17"}, dates)

	var none *Recurrence
	dates, err = none.Expand("2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-03"}, dates)

	_, err = (&Recurrence{Pattern: RecurWeekly, Occurrences: 0}).Expand("2025-03-03")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = (&Recurrence{Pattern: "daily", Occurrences: 2}).Expand("2025-03-03")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}

func TestDatesBetweenInclusive(t *testing.T) {
	dates, err := DatesBetween("2025-07-01", "2025-07-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-01", "2025-07-02", "2025-07-03"}, dates)

	dates, err = DatesBetween("2025-02-28", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-02-28", "2025-03-01"}, dates)

	_, err = DatesBetween("2025-07-03", "2025-07-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = DatesBetween("2025-01-01", "2026-06-01")
	assert.ErrorIs(t, err, ErrRangeTooLong)
}

func TestNormalizeDate(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	tests := []struct {
		raw  string
		want string
	}{
		{"2025-06-15", "2025-06-15"},
		{"2025-06-14T16:00:00.000Z", "2025-06-15"},
		{"6/15/2025", "2025-06-15"},
		{"June 15, 2025", "2025-06-15"},
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.raw, manila)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := NormalizeDate("someday", manila)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestPriceListAndSlots(t *testing.T) {
	price, ok := PriceFor("root canal treatment")
	require.True(t, ok)
	assert.EqualValues(t, 8000, price)

	_, ok = PriceFor("Brain Surgery")
	assert.False(t, ok)

	assert.True(t, ValidTimeSlot("9:00 AM"))
	assert.False(t, ValidTimeSlot("12:00 PM"))
	assert.Less(t, SlotIndex("11:00 AM"), SlotIndex("1:00 PM"))
}

func TestAppointmentHelpers(t *testing.T) {
	a := Appointment{Price: 1000}
	assert.EqualValues(t, 1, a.Multiplier())
	a.Occurrences = 4
	assert.EqualValues(t, 4, a.Multiplier())

	a.AppendNote("first")
	a.AppendNote("  ")
	a.AppendNote("second")
	assert.Equal(t, "first\nsecond", a.Notes)

	assert.False(t, StatusCancelled.OccupiesSlot())
	assert.True(t, StatusRescheduled.OccupiesSlot())
	assert.True(t, AppointmentStatus("no-show").Valid())
	assert.False(t, AppointmentStatus("done").Valid())
}

func TestBlockedUnion(t *testing.T) {
	union := BlockedUnion([]BlockedDateSet{
		{Dates: []string{"2025-07-01", "2025-07-02"}},
		{Dates: []string{"2025-07-02", "2025-12-25"}},
	})
	assert.Len(t, union, 3)
	assert.Contains(t, union, "2025-12-25")
}
