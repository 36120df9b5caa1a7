package evcs

import (
	"fmt"
	"io"
	"log"
	"os"
)

const (
	LOG_ERROR = 1
	LOG_INFO  = 2
	LOG_DEBUG = 3
	LOG_SPAM  = 4
)

var (
	logSpam  *log.Logger
	logDebug *log.Logger
	logInfo  *log.Logger
	logErr   *log.Logger
	maxLvl   int
)

func init() {
	InitLoggers(LOG_INFO)
}

func InitLoggers(logLvl int) {
	maxLvl = logLvl
	SetLogOutput(os.Stdout)
}

// SetLogOutput redirects every level to w.
func SetLogOutput(w io.Writer) {
	logSpam = log.New(w, "SPAM ", log.Ldate|log.Ltime|log.Lshortfile)
	logDebug = log.New(w, "DEBUG ", log.Ldate|log.Ltime|log.Lshortfile)
	logInfo = log.New(w, "INFO ", log.Ldate|log.Ltime|log.Lshortfile)
	logErr = log.New(w, "ERROR ", log.Ldate|log.Ltime|log.Lshortfile)
}

func Log(msgLvl int, printF string, args ...interface{}) {
	if msgLvl > maxLvl {
		return
	}
	var l *log.Logger
	switch msgLvl {
	case LOG_ERROR:
		l = logErr
	case LOG_INFO:
		l = logInfo
	case LOG_DEBUG:
		l = logDebug
	case LOG_SPAM:
		l = logSpam
	default:
		return
	}
	// depth 2 so Lshortfile reports the caller of Log
	l.Output(2, fmt.Sprintf(printF, args...))
}
