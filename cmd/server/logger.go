package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/config"
)

// dailyFile writes to LOG_DIR/app-YYYY-MM-DD.log and switches files when
// the date changes.
type dailyFile struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	date          string
	file          *os.File
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Write(p)
}

func (d *dailyFile) rotate(now time.Time) {
	date := now.Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	if date == d.date {
		return
	}
	next, err := openLogFile(d.dir, date)
	if err != nil {
		return
	}
	_ = d.file.Close()
	d.file = next
	d.date = date
	cleanupOldLogs(d.dir, d.retentionDays)
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

// setupLogger points the global zerolog logger at stdout and the daily file.
func setupLogger(cfg config.Config) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, err
	}
	date := time.Now().Format("2006-01-02")
	file, err := openLogFile(cfg.LogDir, date)
	if err != nil {
		return nil, err
	}
	daily := &dailyFile{dir: cfg.LogDir, retentionDays: cfg.LogRetentionDays, date: date, file: file}
	cleanupOldLogs(cfg.LogDir, cfg.LogRetentionDays)
	log.Logger = zerolog.New(io.MultiWriter(os.Stdout, daily)).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				daily.rotate(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		_ = daily.Close()
	}, nil
}

func openLogFile(logDir, date string) (*os.File, error) {
	filename := filepath.Join(logDir, fmt.Sprintf("app-%s.log", date))
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func cleanupOldLogs(logDir string, retentionDays int) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -(retentionDays - 1))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		logDate, err := time.Parse("2006-01-02", datePart)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(logDir, name))
		}
	}
}
