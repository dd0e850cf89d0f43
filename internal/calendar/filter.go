package calendar

import "coursecal/internal/model"

// FilterByCourse keeps only records whose course title is in courses. An
// empty courses list disables filtering.
func FilterByCourse(classes []model.ClassSession, exams []model.ExamWindow, courses []string) ([]model.ClassSession, []model.ExamWindow) {
	if len(courses) == 0 {
		return classes, exams
	}
	set := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		set[c] = struct{}{}
	}

	outC := make([]model.ClassSession, 0, len(classes))
	for _, c := range classes {
		if _, ok := set[c.CourseTitle]; ok {
			outC = append(outC, c)
		}
	}
	outX := make([]model.ExamWindow, 0, len(exams))
	for _, x := range exams {
		if _, ok := set[x.CourseTitle]; ok {
			outX = append(outX, x)
		}
	}
	return outC, outX
}
