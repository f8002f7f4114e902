package core

// Logger is implemented by the logging services.
// args may hold errors, map[string]interface{} extras and the acting user id (as a UserRef).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// UserRef identifies the acting user in log entries.
type UserRef struct {
	ID int
}
