package domain

// User is a bot subscriber. TelegramID is the external identity, unique per
// bot. The profile fields are denormalized from the chat platform and are
// advisory only.
type User struct {
	FirstName   string
	LastName    string
	DisplayName string
	UserName    string
	TelegramID  int64
	BotID       int64
}
