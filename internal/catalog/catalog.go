// Package catalog reads class sessions and exam windows from a local YAML
// file, the offline counterpart of the ICS feeds.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

var ErrEmptyPath = errors.New("catalog: path is empty")

// idNamespace seeds name-based ids for records without one.
var idNamespace = uuid.MustParse("5b0b7f3e-3f7c-4c1e-9a55-2f8f5d0c6a41")

// File is the on-disk shape of the catalog.
//
//	courses:
//	  - title: Algebra I
//	    edition_start: "09:00"
//	    edition_end: "11:00"
//	    classes:
//	      - title: Lecture 1
//	        date: 2024-03-11
//	        duration_minutes: 90
//	    exams:
//	      - title: Midterm
//	        available_from: 2024-03-10T09:00:00
//	        due_by: 2024-03-12T18:00:00
//	        min_score: 18
//	        max_score: 30
type File struct {
	Courses []Course `yaml:"courses"`
}

type Course struct {
	Title        string  `yaml:"title"`
	EditionStart string  `yaml:"edition_start"`
	EditionEnd   string  `yaml:"edition_end"`
	Classes      []Class `yaml:"classes"`
	Exams        []Exam  `yaml:"exams"`
}

type Class struct {
	ID              string `yaml:"id"`
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	Date            string `yaml:"date"`
	Start           string `yaml:"start"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Color           string `yaml:"color"`
}

type Exam struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	AvailableFrom string `yaml:"available_from"`
	DueBy         string `yaml:"due_by"`
	MinScore      int    `yaml:"min_score"`
	MaxScore      int    `yaml:"max_score"`
	Color         string `yaml:"color"`
}

// Load reads path and converts it with Decode.
func Load(path string, loc *time.Location) ([]model.ClassSession, []model.ExamWindow, error) {
	if path == "" {
		return nil, nil, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Decode(data, loc)
}

// Decode parses catalog YAML. Timestamps are wall-clock values in loc.
// Unparsable timestamps are left zero so the normalizer drops the record
// with a reason instead of failing the whole file.
func Decode(data []byte, loc *time.Location) ([]model.ClassSession, []model.ExamWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("catalog: decode: %w", err)
	}

	var (
		classes []model.ClassSession
		exams   []model.ExamWindow
	)
	for _, c := range f.Courses {
		for i, cl := range c.Classes {
			s := model.ClassSession{
				ID:               cl.ID,
				CourseTitle:      c.Title,
				Title:            cl.Title,
				Description:      cl.Description,
				OccurrenceDate:   parseWall(cl.Date, loc),
				DurationMinutes:  cl.DurationMinutes,
				EditionStartTime: c.EditionStart,
				EditionEndTime:   c.EditionEnd,
				Color:            model.ParseColor(cl.Color),
			}
			if cl.Start != "" && cl.Date != "" {
				s.RecordedStart = parseWall(cl.Date+"T"+cl.Start, loc)
			}
			if s.ID == "" {
				s.ID = stableID(model.CategoryClass, c.Title, cl.Title, cl.Date, i)
			}
			classes = append(classes, s)
		}
		for i, ex := range c.Exams {
			x := model.ExamWindow{
				ID:            ex.ID,
				CourseTitle:   c.Title,
				Title:         ex.Title,
				Description:   ex.Description,
				AvailableFrom: parseWall(ex.AvailableFrom, loc),
				DueBy:         parseWall(ex.DueBy, loc),
				MinScore:      ex.MinScore,
				MaxScore:      ex.MaxScore,
				Color:         model.ParseColor(ex.Color),
			}
			if x.ID == "" {
				x.ID = stableID(model.CategoryExam, c.Title, ex.Title, ex.AvailableFrom, i)
			}
			exams = append(exams, x)
		}
	}
	appLog.Debug("catalog decoded", "classes", len(classes), "exams", len(exams))
	return classes, exams, nil
}

// stableID derives a name-based UUID so the same record keeps the same id
// across reloads.
func stableID(cat model.Category, course, title, when string, index int) string {
	key := strings.Join([]string{string(cat), course, title, when, fmt.Sprint(index)}, "\x1f")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

var wallLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseWall(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range wallLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc)
	}
	appLog.Warn("catalog: unparsable timestamp", "value", s)
	return time.Time{}
}
