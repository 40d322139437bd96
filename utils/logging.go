package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// LogWriter owns the outputs configured by InitLogger.
type LogWriter struct {
	file *os.File
}

// Dispose closes the log file, if any.
func (w *LogWriter) Dispose() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

type levelHook struct {
	writer    io.Writer
	levels    []logger.Level
	formatter logger.Formatter
}

func (h *levelHook) Levels() []logger.Level {
	return h.levels
}

func (h *levelHook) Fire(entry *logger.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

func levelsUpTo(level logger.Level) []logger.Level {
	levels := []logger.Level{}
	for _, l := range logger.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return levels
}

func parseLevel(name string, fallback logger.Level) logger.Level {
	if name == "" {
		return fallback
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		return fallback
	}
	return level
}

// InitLogger configures the standard logger from the logging config. Console
// and file output each get their own level.
func InitLogger() (*LogWriter, *logger.Logger) {
	log := logger.StandardLogger()
	writer := &LogWriter{}
	if Config == nil {
		return writer, log
	}

	outputLevel := parseLevel(Config.Logging.OutputLevel, logger.InfoLevel)
	maxLevel := outputLevel

	log.SetOutput(io.Discard)
	log.ReplaceHooks(logger.LevelHooks{})

	var console io.Writer = os.Stdout
	if Config.Logging.OutputStderr {
		console = os.Stderr
	}
	log.AddHook(&levelHook{
		writer:    console,
		levels:    levelsUpTo(outputLevel),
		formatter: &logger.TextFormatter{},
	})

	if Config.Logging.FilePath != "" {
		file, err := os.OpenFile(Config.Logging.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.SetOutput(console)
			log.Errorf("could not open log file %v: %v", Config.Logging.FilePath, err)
		} else {
			writer.file = file
			fileLevel := parseLevel(Config.Logging.FileLevel, outputLevel)
			if fileLevel > maxLevel {
				maxLevel = fileLevel
			}
			log.AddHook(&levelHook{
				writer:    file,
				levels:    levelsUpTo(fileLevel),
				formatter: &logger.JSONFormatter{},
			})
		}
	}

	log.SetLevel(maxLevel)
	return writer, log
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	errColl := []string{}
	for {
		errColl = append(errColl, fmt.Sprint(err))
		nextErr := errors.Unwrap(err)
		if nextErr != nil {
			err = nextErr
		} else {
			break
		}
	}

	errMarkSign := "~"
	for idx := 0; idx < (len(errColl) - 1); idx++ {
		errInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx, errMarkSign)
		nextErrInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx+1, errMarkSign)
		if idx == (len(errColl) - 2) {
			nextErrInfoText = fmt.Sprintf("%serror%s", errMarkSign, errMarkSign)
		}

		// Replace the last occurrence of the next error in the current error
		lastIdx := strings.LastIndex(errColl[idx], errColl[idx+1])
		if lastIdx != -1 {
			errColl[idx] = errColl[idx][:lastIdx] + nextErrInfoText + errColl[idx][lastIdx+len(errColl[idx+1]):]
		}

		errInfoText = strings.ReplaceAll(errInfoText, errMarkSign, "")
		logFields = logFields.WithField(errInfoText, errColl[idx])
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
