package registration

// EventKind is the normalized meaning of an inbound message.
type EventKind int

const (
	EventText EventKind = iota
	EventStart
	EventRegister
	EventEdit
	EventQuery
	EventCancel
	EventExport
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventRegister:
		return "register"
	case EventEdit:
		return "edit"
	case EventQuery:
		return "query"
	case EventCancel:
		return "cancel"
	case EventExport:
		return "export"
	default:
		return "text"
	}
}

// Event is one inbound user action. Username and DisplayName are whatever the
// transport knows about the sender at the time of the event.
type Event struct {
	Kind        EventKind
	UserID      int64
	ChatID      int64
	Username    string
	DisplayName string
	Text        string
}
