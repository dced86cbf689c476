package logx

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultLogDir     = "./logs/"
	defaultLogFile    = "cubix.log"
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 7
)

// LogConfig controls where log lines go and how the file is rotated.
type LogConfig struct {
	File       string `ini:"file"`
	MaxSizeMB  int    `ini:"max_size_mb"`
	MaxAgeDays int    `ini:"max_age_days"`
}

var (
	mu               sync.RWMutex
	lumberjackLogger = &lumberjack.Logger{
		Filename: getLogFilename(),
		MaxSize:  getMaxSize(), // megabytes
		MaxAge:   getMaxAge(),  // days
	}

	logger = log.New(lumberjackLogger, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func getLogFilename() string {
	if logFile := os.Getenv("LOGFILE"); logFile != "" {
		return defaultLogDir + logFile
	}
	return defaultLogDir + defaultLogFile
}

func getMaxSize() int {
	return envInt("LOGFILE_MAX_SIZE_MB", defaultMaxSizeMB)
}

func getMaxAge() int {
	return envInt("LOGFILE_MAX_AGE_DAYS", defaultMaxAgeDays)
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// Configure replaces the rotating file target. Zero fields keep the current values.
func Configure(cfg LogConfig) {
	mu.Lock()
	defer mu.Unlock()

	next := &lumberjack.Logger{
		Filename: lumberjackLogger.Filename,
		MaxSize:  lumberjackLogger.MaxSize,
		MaxAge:   lumberjackLogger.MaxAge,
	}
	if cfg.File != "" {
		next.Filename = cfg.File
	}
	if cfg.MaxSizeMB > 0 {
		next.MaxSize = cfg.MaxSizeMB
	}
	if cfg.MaxAgeDays > 0 {
		next.MaxAge = cfg.MaxAgeDays
	}

	_ = lumberjackLogger.Close()
	lumberjackLogger = next
	logger = log.New(lumberjackLogger, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

func write(level, color, category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)

	mu.RLock()
	defer mu.RUnlock()
	logger.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	write("INFO", ColorGreen, category, content...)
}

func Error(category string, content ...interface{}) {
	write("ERROR", ColorRed, category, content...)
}

func Warn(category string, content ...interface{}) {
	write("WARN", ColorYellow, category, content...)
}

func Debug(category string, content ...interface{}) {
	write("DEBUG", ColorBlue, category, content...)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
