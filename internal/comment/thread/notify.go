package thread

import "github.com/rs/zerolog"

// Notifier shows short-lived messages to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Info(msg string) {
	n.Log.Info().Msg(msg)
}

func (n LogNotifier) Error(msg string) {
	n.Log.Error().Msg(msg)
}
