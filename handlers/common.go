package handlers

import (
	"context"
	"net/http"
	"time"

	"blog-api/auth"

	logger "github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// HandlerFunc is the handler shape used by every controller: the request
// context is passed explicitly next to the writer and request.
type HandlerFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request)

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f(r.Context(), w, r)
}

type routeKey struct{}

type routeInfo struct {
	name   string
	method string
	path   string
}

// WithRoute records the matched route so request logs can name it
func WithRoute(ctx context.Context, name, method, path string) context.Context {
	return context.WithValue(ctx, routeKey{}, routeInfo{name: name, method: method, path: path})
}

func routeFrom(ctx context.Context) routeInfo {
	info, _ := ctx.Value(routeKey{}).(routeInfo)
	return info
}

// logRequest logs message prefixed with the route, method, path and, when
// authenticated, the user id. Extra fields (e.g. zap.Error) are appended.
func logRequest(ctx context.Context, level string, message string, fields ...zap.Field) {
	route := routeFrom(ctx)

	logMsg := time.Now().Format("2006-01-02 15:04:05") + " - " + route.name + " - " + route.method + " - " + route.path
	userID, authenticated := auth.UserIDFromContext(ctx)
	if authenticated {
		logMsg += " - user:" + userID
	}
	if message != "" {
		logMsg += " - " + message
	}

	allFields := append([]zap.Field{
		zap.String("route", route.name),
		zap.String("method", route.method),
		zap.String("path", route.path),
	}, fields...)
	if authenticated {
		allFields = append(allFields, zap.String("user_id", userID))
	}

	switch level {
	case "info":
		logger.Info(logMsg, allFields...)
	case "error":
		logger.Error(logMsg, allFields...)
	case "debug":
		logger.Debug(logMsg, allFields...)
	}
}
