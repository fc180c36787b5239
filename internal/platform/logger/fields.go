package logger

import "log/slog"

// Domain identifiers

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func Server(id string) slog.Attr {
	return slog.String("server_id", id)
}

func Channel(id string) slog.Attr {
	return slog.String("channel_id", id)
}

func Group(key string) slog.Attr {
	return slog.String("group", key)
}

func Handle(id string) slog.Attr {
	return slog.String("handle_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
