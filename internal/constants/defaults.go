package constants

// Conversation window configuration
const (
	DefaultWindowSize      = 40
	DefaultEventBufferSize = 64
)

// Default pacing values in milliseconds. These drive the simulated
// delivery and reply reveal; they are UX pacing choices, not
// correctness requirements, and every one can be overridden in config.
const (
	DefaultReplyThinkMs      = 1000
	DefaultDeliverySentMs    = 1000
	DefaultDeliverySeenMs    = 1000
	DefaultReplyFragmentMs   = 3000
	DefaultWelcomeFragmentMs = 1500
	DefaultPresenceResetMs   = 10000
	DefaultPersistDebounceMs = 500
)

// Storage configuration
const (
	DefaultDatabasePath = "galechat.db"
	ConversationLogKey  = "chat.messages"
)

// Display formats. The date layout is the grouping key for sections;
// changing it is a breaking change for existing logs.
const (
	TimeLayout = "3:04 PM"
	DateLayout = "Mon Jan 02 2006"
)

// Server defaults
const (
	DefaultServerPort            = 8089
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 10
)
