package vehicle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Reasons reported in ParseWarning.
const (
	ReasonMissingColon  = "missing ':' between vehicle and dates"
	ReasonMissingHyphen = "missing '-' between start and end date"
	ReasonEmptyName     = "empty vehicle name"
)

// Parse reads "name : start - end" lines from r.
// Lines may be of any length. Blank lines and lines starting with '#' are
// ignored. Malformed lines are
// skipped and reported as warnings; only a read failure is an error.
func Parse(r io.Reader) ([]Job, []ParseWarning, error) {
	var (
		jobs     []Job
		warnings []ParseWarning
	)

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return jobs, warnings, fmt.Errorf("reading vehicle config: %w", readErr)
		}
		if raw == "" && readErr == io.EOF {
			break
		}

		lineNo++
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		line := strings.TrimSpace(raw)
		if line != "" && !strings.HasPrefix(line, "#") {
			job, reason := parseLine(line)
			if reason != "" {
				warnings = append(warnings, ParseWarning{Line: lineNo, Text: line, Reason: reason})
			} else {
				jobs = append(jobs, job)
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return jobs, warnings, nil
}

func parseLine(line string) (Job, string) {
	name, dates, ok := strings.Cut(line, ":")
	if !ok {
		return Job{}, ReasonMissingColon
	}

	start, end, ok := splitRange(dates)
	if !ok {
		return Job{}, ReasonMissingHyphen
	}

	job := Job{
		Name:      strings.TrimSpace(name),
		StartDate: strings.TrimSpace(start),
		EndDate:   strings.TrimSpace(end),
	}
	if job.Name == "" {
		return Job{}, ReasonEmptyName
	}
	return job, ""
}

// splitRange splits "start - end" on the range delimiter. A hyphen with
// whitespace next to it wins; otherwise the middle hyphen is used, so that
// "2024-02-01-2024-02-15" splits between the two dates and "a-b" at its
// only hyphen.
func splitRange(s string) (string, string, bool) {
	var hyphens []int
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		if (i > 0 && isBlank(s[i-1])) || (i+1 < len(s) && isBlank(s[i+1])) {
			return s[:i], s[i+1:], true
		}
		hyphens = append(hyphens, i)
	}
	if len(hyphens) == 0 {
		return "", "", false
	}

	k := hyphens[(len(hyphens)-1)/2]
	return s[:k], s[k+1:], true
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

// ParseFile parses the config file at path, logging every skipped line.
// An unreadable file is an error; zero valid lines is not.
func ParseFile(path string, logger *slog.Logger) ([]Job, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vehicle config %s: %w", path, err)
	}
	defer f.Close()

	jobs, warnings, err := Parse(f)
	for _, w := range warnings {
		logger.Warn("Skipping malformed config line",
			"file", path,
			"line", w.Line,
			"text", w.Text,
			"reason", w.Reason,
		)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded vehicle config", "file", path, "jobs", len(jobs), "skipped", len(warnings))
	return jobs, nil
}
