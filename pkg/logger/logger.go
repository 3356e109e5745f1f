package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
)

// Init 初始化日志
func Init(level string, logFile string) error {
	logger = logrus.New()
	logger.SetLevel(parseLevel(level))

	// 设置日志格式
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	})

	if logFile == "" {
		logger.SetOutput(os.Stdout)
		return nil
	}

	// 确保日志目录存在
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	// 同时输出到文件和控制台
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Debugf 输出格式化调试日志（受调试总开关控制）
func Debugf(format string, args ...interface{}) {
	if !shouldLogDebug() {
		return
	}
	if logger != nil {
		logger.Debugf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// Infof 输出格式化信息日志
func Infof(format string, args ...interface{}) {
	if logger != nil {
		logger.Infof(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// Warnf 输出格式化警告日志
func Warnf(format string, args ...interface{}) {
	if logger != nil {
		logger.Warnf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// Errorf 输出格式化错误日志
func Errorf(format string, args ...interface{}) {
	if logger != nil {
		logger.Errorf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// WithFields 返回带上下文字段的日志条目，未初始化时使用标准 logrus 实例
func WithFields(fields logrus.Fields) *logrus.Entry {
	if logger != nil {
		return logger.WithFields(fields)
	}
	return logrus.StandardLogger().WithFields(fields)
}

// SetLevel 设置日志级别
func SetLevel(level string) {
	if logger == nil {
		return
	}
	logger.SetLevel(parseLevel(level))
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	return logger
}

// MaskKey 只保留密钥首尾各4位
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// shouldLogDebug 检查是否应该输出调试日志
func shouldLogDebug() bool {
	if logger != nil && logger.IsLevelEnabled(logrus.DebugLevel) {
		return true
	}
	if os.Getenv("DEBUG_ENABLED") == "true" || os.Getenv("VERBOSE_LOGGING") == "true" {
		return true
	}
	return os.Getenv("LOG_LEVEL") == "debug"
}
