package medications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	good := map[string]TimeOfDay{
		"08:00": {Hour: 8},
		"8:05":  {Hour: 8, Minute: 5},
		"23:59": {Hour: 23, Minute: 59},
		"00:00": {},
	}
	for in, want := range good {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "24:00", "12:60", "noon", "8", "-1:00"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, in)
	}
}

func TestTimeOfDay_Labels(t *testing.T) {
	assert.Equal(t, "12:00 AM", TimeOfDay{}.Label12h())
	assert.Equal(t, "8:05 AM", TimeOfDay{Hour: 8, Minute: 5}.Label12h())
	assert.Equal(t, "12:30 PM", TimeOfDay{Hour: 12, Minute: 30}.Label12h())
	assert.Equal(t, "11:00 PM", TimeOfDay{Hour: 23}.Label12h())
	assert.Equal(t, "08:05", TimeOfDay{Hour: 8, Minute: 5}.String())
}

func TestDuration(t *testing.T) {
	for in, want := range map[string]Duration{
		"Ongoing": OngoingDuration(),
		"":        OngoingDuration(),
		"-1 days": OngoingDuration(),
		"30 days": DaysDuration(30),
		"7":       DaysDuration(7),
		"1 day":   DaysDuration(1),
	} {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDuration("forever")
	assert.Error(t, err)
	_, err = ParseDuration("0 days")
	assert.Error(t, err)

	assert.Equal(t, "1 day", DaysDuration(1).String())
	assert.Equal(t, "14 days", DaysDuration(14).String())
}

func TestSchedule_ActiveAndOccurrences(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	s := Schedule{
		DoseTimes: []TimeOfDay{{Hour: 20}, {Hour: 8}, {Hour: 14, Minute: 30}},
		StartDate: CivilDate{Year: 2025, Month: time.March, Day: 10},
		Duration:  DaysDuration(2),
	}

	assert.False(t, s.Active(time.Date(2025, 3, 9, 23, 0, 0, 0, loc)))
	assert.True(t, s.Active(time.Date(2025, 3, 11, 23, 0, 0, 0, loc)))
	assert.False(t, s.Active(time.Date(2025, 3, 12, 0, 0, 0, 0, loc)))

	occ := s.Occurrences(time.Date(2025, 3, 10, 12, 0, 0, 0, loc))
	require.Len(t, occ, 3)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, loc), occ[0])
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, loc), occ[1])
	assert.Nil(t, s.Occurrences(time.Date(2025, 3, 20, 12, 0, 0, 0, loc)))

	due, ok := s.LatestDue(time.Date(2025, 3, 10, 15, 0, 0, 0, loc))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, loc), due)
	_, ok = s.LatestDue(time.Date(2025, 3, 10, 7, 0, 0, 0, loc))
	assert.False(t, ok)
}

func TestSchedule_ConsumeDose(t *testing.T) {
	s := Schedule{CurrentSupply: 1}
	assert.True(t, s.ConsumeDose())
	assert.Equal(t, 0, s.CurrentSupply)
	assert.False(t, s.ConsumeDose())
	assert.Equal(t, 0, s.CurrentSupply)
}

func TestSchedule_JSONLayout(t *testing.T) {
	s := Schedule{
		ID:        "m1",
		Name:      "Aspirin",
		Dosage:    "100mg",
		DoseTimes: []TimeOfDay{{Hour: 8}},
		StartDate: CivilDate{Year: 2025, Month: time.March, Day: 10},
		Duration:  DaysDuration(30),
	}
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "m1", "name": "Aspirin", "dosage": "100mg",
		"times": ["08:00"], "startDate": "2025-03-10", "duration": "30 days",
		"reminderEnabled": false, "currentSupply": 0, "totalSupply": 0,
		"refillAt": 0, "refillReminder": false
	}`, string(raw))

	var back Schedule
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s, back)
}
