package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendschool/internal/apperr"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-10-10 ")
	require.NoError(t, err)
	assert.Equal(t, Date("2026-10-10"), d)
	assert.Equal(t, time.Saturday, d.Weekday())
	assert.Equal(t, Date("2026-10-11"), d.AddDays(1))
	assert.True(t, d.Before("2026-10-11"))

	_, err = ParseDate("10/10/2026")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestParseDayAndStatus(t *testing.T) {
	d, err := ParseDay("sunday")
	require.NoError(t, err)
	assert.Equal(t, Sunday, d)
	_, err = ParseDay("monday")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	st, err := ParseStatus("wrong_session")
	require.NoError(t, err)
	assert.Equal(t, StatusWrongSession, st)
	_, err = ParseStatus("late")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestSessionEndsAt(t *testing.T) {
	s := Session{Day: Saturday, EndTime: "11:00"}
	assert.Equal(t, time.Date(2026, 10, 10, 11, 0, 0, 0, time.UTC), s.EndsAt("2026-10-10", time.UTC))
	assert.True(t, s.HeldOn("2026-10-10"))
	assert.False(t, s.HeldOn("2026-10-11"))

	s.EndTime = "late"
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), s.EndsAt("2026-10-10", time.UTC))
}
