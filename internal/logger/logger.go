// internal/logger/logger.go
package logger

import "go.uber.org/zap"

// New returns a production JSON logger, or a human-readable development
// logger when APP_ENV=development.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
