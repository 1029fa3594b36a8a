package bot

// Command constants for Telegram bot commands.
const (
	CommandStart    = "/start"
	CommandHelp     = "/help"
	CommandEnroll   = "/enroll"
	CommandUnenroll = "/unenroll"
	CommandStatus   = "/status"
	CommandCancel   = "/cancel"
	CommandResubmit = "/resubmit"
)
