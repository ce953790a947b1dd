package grade

import (
	"regexp"

	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
)

// gradePattern matches "Grade", an optional colon, optional whitespace and a
// letter A-D with at most one trailing + or -. The leading word boundary keeps
// words such as "upgrade" from matching.
var gradePattern = regexp.MustCompile(`(?i)\bgrade:?\s*([a-d][+-]?)`)

// Extract 从模型的自由文本回复中提取评分。
//
// Matches are scanned left to right and the first token that is a rubric grade
// wins. Tokens outside the rubric (A+, C-, D+, D-) are skipped and scanning
// continues. No match is a normal outcome and returns false.
func Extract(raw string) (rubric.Grade, bool) {
	for _, match := range gradePattern.FindAllStringSubmatch(raw, -1) {
		if g, ok := rubric.Parse(match[1]); ok {
			return g, true
		}
	}
	return "", false
}

// ExtractPointer is Extract for callers that store the grade as an optional field.
func ExtractPointer(raw string) *rubric.Grade {
	g, ok := Extract(raw)
	if !ok {
		return nil
	}
	return &g
}
