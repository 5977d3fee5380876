// Package ingest turns spreadsheet bytes into validated QuizData. The column
// layout is positional: 0 category, 1 point value, 2 question text,
// 3 canonical answer, 4-7 optional multiple-choice options.
package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"omniquiz-service/internal/domain"
)

const maxOptions = 4

// ParseWorkbook reads the first sheet of an xlsx payload. Anything that fails
// the minimum-shape checks surfaces as domain.ErrInvalidFormat so the host UI
// can show one message and adopt no partial data.
func ParseWorkbook(data []byte) (domain.QuizData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.QuizData{}, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.QuizData{}, domain.ErrInvalidFormat
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.QuizData{}, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	return ParseRows(rows)
}

// ParseRows applies the ingestion contract to raw rows (header first). A row
// contributes a question only if both category and question text are
// non-empty after trimming; rows sharing a category group together preserving
// row order; an unparsable value defaults to 0.
func ParseRows(rows [][]string) (domain.QuizData, error) {
	if len(rows) < 2 {
		return domain.QuizData{}, domain.ErrInvalidFormat
	}

	byCategory := make(map[string][]domain.Question)
	var categories []string

	for _, row := range rows[1:] {
		category := strings.TrimSpace(cell(row, 0))
		question := strings.TrimSpace(cell(row, 2))
		if category == "" || question == "" {
			continue
		}
		answer := strings.TrimSpace(cell(row, 3))
		value := parseValue(cell(row, 1))

		var options []string
		for i := 4; i < 4+maxOptions; i++ {
			if opt := strings.TrimSpace(cell(row, i)); opt != "" {
				options = append(options, opt)
			}
		}

		if _, ok := byCategory[category]; !ok {
			categories = append(categories, category)
		}
		byCategory[category] = append(byCategory[category], domain.Question{
			Category: category,
			Value:    value,
			Question: question,
			Answer:   answer,
			Options:  options,
		})
	}

	if len(categories) == 0 {
		return domain.QuizData{}, domain.ErrInvalidFormat
	}

	questions := make([][]domain.Question, len(categories))
	for i, cat := range categories {
		questions[i] = byCategory[cat]
	}
	return domain.QuizData{Categories: categories, Questions: questions}, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseValue(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	// Spreadsheet numerics often come through as floats ("200.0").
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}
