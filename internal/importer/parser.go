package importer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The importer reads the semicolon-delimited strength log export:
//
//	"Legs · Week 4";"2026-02-19 4:54 h";"1:02 hr"
//	"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps"
//	#;KG;REPS;RIR
//	1;115;8;1
//
// Blank lines separate sessions. Warmup sets ride along on the exercise
// header line; weights use European decimals and "+N" for bodyweight-plus.
var (
	sessionHeaderRe  = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)
	setLineRe        = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)
	warmupRe         = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)
	columnHeaderRe   = regexp.MustCompile(`^#;KG;REPS;RIR$`)
	durationRe       = regexp.MustCompile(`^(\d+):(\d+)\s+hr$`)
)

// LogSession is one training session as it appears in the export.
type LogSession struct {
	Name      string
	Date      time.Time
	Duration  time.Duration
	Exercises []LogExercise
}

// LogExercise is one exercise block. Sets hold warmups first, in the order
// the export lists them.
type LogExercise struct {
	Name       string
	Equipment  string
	TargetReps int
	Sets       []LogSet
}

// LogSet is one performed set. BodyweightPlus marks "+N" weights where N is
// the added load on top of bodyweight.
type LogSet struct {
	WeightKg       float64
	Reps           int
	RIR            float64
	Warmup         bool
	BodyweightPlus bool
}

// Parse reads a strength log export and returns the sessions it contains.
func Parse(r io.Reader) ([]LogSession, error) {
	scanner := bufio.NewScanner(r)
	var sessions []LogSession
	var current *LogSession
	var currentExercise *LogExercise

	flushExercise := func() {
		if currentExercise != nil {
			current.Exercises = append(current.Exercises, *currentExercise)
			currentExercise = nil
		}
	}
	flushSession := func() {
		if current != nil {
			flushExercise()
			sessions = append(sessions, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Blank line = session boundary
		if line == "" {
			flushSession()
			continue
		}

		if columnHeaderRe.MatchString(line) {
			continue
		}

		if m := sessionHeaderRe.FindStringSubmatch(line); m != nil {
			flushSession()
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("parsing session date %q: %w", m[2], err)
			}
			current = &LogSession{
				Name:     m[1],
				Date:     date,
				Duration: parseLogDuration(m[3]),
			}
			continue
		}

		if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
			if current == nil {
				return nil, fmt.Errorf("exercise without session: %q", line)
			}
			flushExercise()
			targetReps, _ := strconv.Atoi(m[4])
			currentExercise = &LogExercise{
				Name:       strings.TrimSpace(m[2]),
				Equipment:  strings.TrimSpace(m[3]),
				TargetReps: targetReps,
			}
			if m[6] != "" {
				currentExercise.Sets = append(currentExercise.Sets, parseWarmups(m[6])...)
			}
			continue
		}

		if m := setLineRe.FindStringSubmatch(line); m != nil {
			if currentExercise == nil {
				return nil, fmt.Errorf("set line without exercise: %q", line)
			}
			weight, isBW := parseWeight(m[2])
			reps, _ := strconv.Atoi(m[3])
			currentExercise.Sets = append(currentExercise.Sets, LogSet{
				WeightKg:       weight,
				Reps:           reps,
				RIR:            parseEuropeanFloat(m[4]),
				BodyweightPlus: isBW,
			})
			continue
		}

		// Unknown line: skip silently (notes or other metadata)
	}

	flushSession()
	return sessions, scanner.Err()
}

// parseSessionDate parses "2026-02-19 4:54" into a time.Time.
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// parseLogDuration parses "1:02 hr" into a duration; unparseable input maps
// to zero and the caller substitutes a default.
func parseLogDuration(s string) time.Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}

// parseWarmups extracts warmup sets from the exercise header's second field.
// Example: "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
func parseWarmups(s string) []LogSet {
	var sets []LogSet
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		weight, isBW := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, LogSet{
			WeightKg:       weight,
			Reps:           reps,
			Warmup:         true,
			BodyweightPlus: isBW,
		})
	}
	return sets
}

// parseWeight handles European decimals and bodyweight-plus notation.
// "+35" -> (35, true), "102,5" -> (102.5, false), "+0" -> (0, true)
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		return parseEuropeanFloat(s[1:]), true
	}
	return parseEuropeanFloat(s), false
}

// parseEuropeanFloat converts a European decimal string to float64.
// "102,5" -> 102.5
func parseEuropeanFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
