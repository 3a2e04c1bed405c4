package medications

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay es una hora de reloj (hora, minuto) sin fecha ni zona.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay acepta "H:MM" o "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return t, nil
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Label12h devuelve la hora en formato "8:05 AM".
func (t TimeOfDay) Label12h() string {
	suffix := "AM"
	if t.Hour >= 12 {
		suffix = "PM"
	}
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, suffix)
}

// Minutes desde medianoche; sirve para ordenar.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// On ubica la hora en el día calendario de date (en la zona de date).
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// CivilDate es una fecha de calendario sin hora.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

const civilLayout = "2006-01-02"

func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseCivilDate acepta "YYYY-MM-DD" o un timestamp RFC3339 (se toma su fecha local).
func ParseCivilDate(s string) (CivilDate, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(civilLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return CivilDate{}, fmt.Errorf("invalid date %q", s)
}

func (d CivilDate) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// In devuelve la medianoche de la fecha en loc.
func (d CivilDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d CivilDate) AddDays(n int) CivilDate {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d CivilDate) Before(o CivilDate) bool { return d.compare(o) < 0 }
func (d CivilDate) After(o CivilDate) bool  { return d.compare(o) > 0 }

func (d CivilDate) compare(o CivilDate) int {
	switch {
	case d.Year != o.Year:
		return d.Year - o.Year
	case d.Month != o.Month:
		return int(d.Month) - int(o.Month)
	default:
		return d.Day - o.Day
	}
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CivilDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CivilDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseCivilDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Duration es una cantidad de días o "Ongoing" (sin fin).
type Duration struct {
	Days    int
	Ongoing bool
}

var errInvalidDuration = errors.New("invalid duration")

func OngoingDuration() Duration { return Duration{Ongoing: true} }

func DaysDuration(n int) Duration { return Duration{Days: n} }

// ParseDuration acepta "Ongoing", "30 days", "30" y "-1 ..." (ongoing, formato legacy).
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "ongoing") {
		return OngoingDuration(), nil
	}
	head, _, _ := strings.Cut(s, " ")
	n, err := strconv.Atoi(head)
	if err != nil {
		return Duration{}, fmt.Errorf("%w %q", errInvalidDuration, s)
	}
	if n == -1 {
		return OngoingDuration(), nil
	}
	if n <= 0 {
		return Duration{}, fmt.Errorf("%w %q", errInvalidDuration, s)
	}
	return DaysDuration(n), nil
}

func (d Duration) String() string {
	if d.Ongoing {
		return "Ongoing"
	}
	if d.Days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", d.Days)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
