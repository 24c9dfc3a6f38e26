package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"lickarchive/internal/bootstrap/logging"
	"lickarchive/internal/errs"
)

var (
	monthDirPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayDirPattern   = regexp.MustCompile(`^\d\d$`)
)

// Scanner walks an archive tree laid out as
//
//	<root>/<YYYY-MM>/<DD>/<instrument>/<file>
//
// and invokes the callback for every regular file under an instrument
// directory that passes the date range and instrument filters.
type Scanner struct {
	Root        string
	Range       DateRange
	Instruments []string
}

func (s *Scanner) instrumentWanted(name string) bool {
	for _, inst := range s.Instruments {
		if inst == name {
			return true
		}
	}
	return false
}

// Scan visits matching files in lexical order. Unreadable or irregular
// entries are logged and skipped; they never abort the walk.
func (s *Scanner) Scan(ctx context.Context, fn func(path string) error) error {
	ctx = logging.WithAttrs(ctx, slog.String("component", "scanner"))

	months, err := os.ReadDir(s.Root)
	if err != nil {
		return errs.Wrapf(err, "read archive root %s", s.Root)
	}

	for _, month := range months {
		if !month.IsDir() || !monthDirPattern.MatchString(month.Name()) {
			continue
		}
		monthPath := filepath.Join(s.Root, month.Name())

		days, err := os.ReadDir(monthPath)
		if err != nil {
			logging.Warn(ctx, "skipping unreadable month directory",
				slog.String("path", monthPath), slog.Any("error", err))
			continue
		}

		for _, day := range days {
			if !day.IsDir() || !dayDirPattern.MatchString(day.Name()) {
				continue
			}
			dayDate, err := time.ParseInLocation(dateLayout,
				fmt.Sprintf("%s-%s", month.Name(), day.Name()), time.UTC)
			if err != nil || !s.Range.Contains(dayDate) {
				continue
			}
			dayPath := filepath.Join(monthPath, day.Name())

			instruments, err := os.ReadDir(dayPath)
			if err != nil {
				logging.Warn(ctx, "skipping unreadable day directory",
					slog.String("path", dayPath), slog.Any("error", err))
				continue
			}

			for _, inst := range instruments {
				if !inst.IsDir() || !s.instrumentWanted(inst.Name()) {
					continue
				}
				instPath := filepath.Join(dayPath, inst.Name())

				files, err := os.ReadDir(instPath)
				if err != nil {
					logging.Warn(ctx, "skipping unreadable instrument directory",
						slog.String("path", instPath), slog.Any("error", err))
					continue
				}

				for _, file := range files {
					if err := ctx.Err(); err != nil {
						return err
					}
					if !file.Type().IsRegular() {
						logging.Warn(ctx, "skipping non-regular file",
							slog.String("path", filepath.Join(instPath, file.Name())))
						continue
					}
					if err := fn(filepath.Join(instPath, file.Name())); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
