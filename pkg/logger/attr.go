package logger

import (
	"log/slog"
	"strings"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// SessionID records the session identifier under the key "session_id".
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// Provider records an identity provider name under the key "provider".
func Provider(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("provider", name)
}

// Identifier records a rate limiter key under the key "identifier".
func Identifier(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("identifier", id)
}

// Email records a masked email address under the key "email".
// Only the first character of the local part is kept: "j***@example.com".
func Email(addr string) slog.Attr {
	if addr == "" {
		return slog.Attr{}
	}
	return slog.String("email", MaskEmail(addr))
}

// MaskEmail hides the local part of an address except its first character.
func MaskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records a security event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// ClientIP records the remote address under the key "client_ip".
func ClientIP(ip string) slog.Attr {
	if ip == "" {
		return slog.Attr{}
	}
	return slog.String("client_ip", ip)
}
