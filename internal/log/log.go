package log

import "go.uber.org/zap"

var logger = zap.NewNop()

// Init builds the process-wide logger. Dev mode uses the human-readable
// console encoder, production the JSON encoder.
func Init(dev bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	logger = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// L returns the current logger; a no-op logger before Init.
func L() *zap.Logger {
	return logger
}
