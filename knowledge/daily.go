// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/outpost-foundation/outpost/store"
)

// datePattern validates YYYY-MM-DD daily-log names.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// AppendDailyLog appends a timestamped bullet to today's log, creating
// the file with a date heading when it is the day's first entry.
// Daily logs are append-only within a day and never pruned by this
// core.
func (s *Service) AppendDailyLog(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("knowledge: content is required")
	}

	date := s.today()
	name := store.DailyFile(date)
	if !s.store.Exists(name) {
		if err := s.store.AppendText(name, "# "+date+"\n\n"); err != nil {
			return err
		}
	}

	stamp := s.clock.Now().UTC().Format("15:04")
	return s.store.AppendText(name, fmt.Sprintf("- %s %s\n", stamp, content))
}

// ListDailyLogs returns the dates of all daily logs, ascending.
func (s *Service) ListDailyLogs() []string {
	return s.store.ListDaily()
}

// ReadDailyLog returns the log for date (YYYY-MM-DD). Returns an error
// for a malformed date and false for a date with no log.
func (s *Service) ReadDailyLog(date string) (string, bool, error) {
	if !datePattern.MatchString(date) {
		return "", false, fmt.Errorf("knowledge: invalid date %q (want YYYY-MM-DD)", date)
	}
	content, ok := s.store.ReadText(store.DailyFile(date))
	return content, ok, nil
}
