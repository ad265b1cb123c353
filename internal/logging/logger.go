package logging

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// Logger writes lines through a buffered background writer so the event
// path never blocks on disk. Lines are dropped, and counted, when the
// queue is full.
type Logger struct {
	level   LogLevel
	console bool
	queue   chan string
	dropped atomic.Uint64
	done    chan struct{}
	file    *os.File
}

func NewLogger(level LogLevel, path string, console bool) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		level:   level,
		console: console,
		queue:   make(chan string, 8192), // raid bursts produce log bursts
		done:    make(chan struct{}),
		file:    file,
	}
	go l.drain()
	return l, nil
}

// drain flushes on a short interval rather than per line; a raid can
// emit thousands of lines a second.
func (l *Logger) drain() {
	defer close(l.done)
	w := bufio.NewWriterSize(l.file, 64*1024)
	flush := time.NewTicker(250 * time.Millisecond)
	defer flush.Stop()

	for {
		select {
		case line, ok := <-l.queue:
			if !ok {
				w.Flush()
				return
			}
			w.WriteString(line)
		case <-flush.C:
			w.Flush()
			if n := l.dropped.Swap(0); n > 0 {
				fmt.Fprintf(w, "[%s] [WARN] Logger dropped %d lines under pressure\n",
					time.Now().Format("2006-01-02 15:04:05.000"), n)
			}
		}
	}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	line := fmt.Sprintf("[%s] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), level, fmt.Sprintf(format, args...))

	if l.console && level >= LevelWarn {
		os.Stderr.WriteString(line)
	}

	select {
	case l.queue <- line:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

func (l *Logger) Close() error {
	close(l.queue)
	<-l.done
	return l.file.Close()
}

var (
	GlobalLogger *Logger
	initOnce     sync.Once
)

func InitGlobalLogger(level LogLevel, path string) error {
	var err error
	initOnce.Do(func() {
		GlobalLogger, err = NewLogger(level, path, true)
	})
	return err
}

func Debug(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Debug(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Info(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Warn(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Error(format, args...)
	}
}
