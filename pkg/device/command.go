package device

// Command is the wire format published to device/<id>/command.
type Command struct {
	ID        string `json:"id"` // Correlates the reply
	Type      string `json:"type"`
	Command   string `json:"command,omitempty"` // Shell command line
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	Text      string `json:"text,omitempty"`
	Timeout   int    `json:"timeout,omitempty"` // Seconds
	DeviceID  string `json:"device_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Command types understood by the device agent
const (
	CommandScreenshot = "screenshot"
	CommandHierarchy  = "get_hierarchy"
	CommandTap        = "tap"
	CommandInput      = "input"
	CommandShell      = "shell"
)

// Response is the wire format received on device/<id>/response.
type Response struct {
	ID         string `json:"id"` // Matches Command.ID
	Status     string `json:"status"`
	Result     string `json:"result,omitempty"`     // Shell output or hierarchy XML
	Error      string `json:"error,omitempty"`      // Set when Status is error
	Screenshot string `json:"screenshot,omitempty"` // Base64 PNG
	Duration   int64  `json:"duration,omitempty"`   // Milliseconds
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// Response statuses reported by the device agent
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
