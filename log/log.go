package log

import (
	"io"
	"os"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/vidra-network/vidra-go-node/config"
)

var (
	logger log.Logger
)

func InitLog(cfg *config.Config) {
	var dest io.Writer = os.Stdout

	if cfg.LogPath != "stdout" {
		file, err := os.OpenFile(cfg.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			panic(err)
		}

		dest = file
	}

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		SetLogger(log.NewTMJSONLogger(dest))
	case config.LogFormatPlain:
		SetLogger(log.NewTMLogger(dest))
	default:
		panic("unsupported log format")
	}
}

func SetLogger(l log.Logger) {
	logger = l
}

func Logger() log.Logger {
	if logger == nil {
		SetLogger(log.NewTMLogger(os.Stdout))
	}

	return logger
}

func Info(msg string, ctx ...interface{}) {
	Logger().Info(msg, ctx...)
}

func Error(msg string, ctx ...interface{}) {
	Logger().Error(msg, ctx...)
}

func With(keyvals ...interface{}) log.Logger {
	return Logger().With(keyvals...)
}
