package doses

type DoseStatus string

const (
	StatusTaken    DoseStatus = "taken"
	StatusPending  DoseStatus = "pending"
	StatusMissed   DoseStatus = "missed"
	StatusUpcoming DoseStatus = "upcoming"
)

// Source indica quién registró el evento.
type Source string

const (
	SourceManual   Source = "manual"
	SourceReminder Source = "reminder"
	SourceSweeper  Source = "sweeper"
)

func (s Source) OrDefault() Source {
	if s == "" {
		return SourceManual
	}
	return s
}
