package webhook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

// DayLog appends every payload as one JSON line to
// <dir>/webhook_<source>_<YYYY-MM-DD>.log.
type DayLog struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	logger *logrus.Logger
}

func NewDayLog(dir string) (*DayLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create webhook log dir: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat:   time.RFC3339Nano,
		DisableHTMLEscape: true,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	logger.SetLevel(logrus.InfoLevel)

	return &DayLog{dir: dir, now: time.Now, logger: logger}, nil
}

func (d *DayLog) fileName(source string, day time.Time) string {
	return filepath.Join(d.dir, fmt.Sprintf("webhook_%s_%s.log", source, day.UTC().Format(dayLayout)))
}

func (d *DayLog) Append(source string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	f, err := os.OpenFile(d.fileName(source, now), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data := json.RawMessage(payload)
	if !json.Valid(payload) {
		data, _ = json.Marshal(string(payload))
	}

	d.logger.SetOutput(f)
	d.logger.WithTime(now).WithFields(logrus.Fields{
		"type": source,
		"data": data,
	}).Info("webhook")
	return nil
}

// Prune removes day files older than days and returns how many went away.
func (d *DayLog) Prune(days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, err
	}

	cutoff := d.now().UTC().AddDate(0, 0, -days).Format(dayLayout)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "webhook_") || !strings.HasSuffix(name, ".log") {
			continue
		}
		base := strings.TrimSuffix(name, ".log")
		i := strings.LastIndexByte(base, '_')
		if i < 0 {
			continue
		}
		day := base[i+1:]
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		if day < cutoff {
			if err := os.Remove(filepath.Join(d.dir, name)); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
