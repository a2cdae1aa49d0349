package importer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spencereven/Quiz/internal/models"
)

// Spreadsheet rows are positional:
// index, type, question, optionA..optionG, answer.
const (
	colIndex    = 0
	colType     = 1
	colQuestion = 2
	colOptionA  = 3
	colAnswer   = 10

	columnCount = 11
)

// optionIDs are the ids assigned to option columns A through G.
const optionIDs = "abcdefg"

// rowError is a per-row failure recovered during normalization. It never
// aborts the batch.
type rowError struct {
	msg string
}

func (e *rowError) Error() string { return e.msg }

func rowErrorf(format string, args ...interface{}) error {
	return &rowError{msg: fmt.Sprintf(format, args...)}
}

// builder turns the seven option cells and the answer cell of one row into
// options plus a validated answer key.
type builder func(optionCells []string, answer string) ([]models.Option, models.AnswerKey, error)

var builders = map[models.QuestionType]builder{
	models.TypeSingleChoice:   buildSingleChoice,
	models.TypeMultipleChoice: buildMultipleChoice,
	models.TypeTrueFalse:      buildTrueFalse,
}

// Normalize converts raw tabular rows into validated questions plus one
// error per rejected row. An optional header row is detected (first cell
// 序号 or "index") and skipped; row numbers in errors are 1-based over the
// visible data, so with a header the first data row reports as row 2.
// Completely empty rows are skipped silently. One row's failure never
// affects the rows after it.
func Normalize(rows [][]string) ([]models.Question, []models.ImportError) {
	var questions []models.Question
	errs := []models.ImportError{}

	dataRows := rows
	hasHeader := false
	if len(dataRows) > 0 && len(dataRows[0]) > 0 &&
		(dataRows[0][0] == "序号" || dataRows[0][0] == "index") {
		dataRows = dataRows[1:]
		hasHeader = true
	}

	for i, row := range dataRows {
		rowNum := i + 1
		if hasHeader {
			rowNum = i + 2
		}

		if isEmptyRow(row) {
			continue
		}

		if len(row) < columnCount {
			errs = append(errs, models.ImportError{Row: rowNum, Error: "行数据不完整，必须有11列"})
			continue
		}

		index := row[colIndex]
		label := row[colType]
		question := row[colQuestion]
		answer := row[colAnswer]

		if label == "" || question == "" || answer == "" {
			errs = append(errs, models.ImportError{Row: rowNum, Error: "题型、题干或答案不能为空"})
			continue
		}

		q, err := buildQuestion(label, question, row[colOptionA:colAnswer], answer, index, i)
		if err != nil {
			errs = append(errs, models.ImportError{
				Row:      rowNum,
				Error:    err.Error(),
				Question: rowTitle(question, rowNum),
			})
			continue
		}
		questions = append(questions, *q)
	}

	return questions, errs
}

func buildQuestion(label, question string, optionCells []string, answer, index string, loopIndex int) (*models.Question, error) {
	qt, ok := models.TypeFromLabel(label)
	if !ok {
		return nil, rowErrorf(`未知的题型: "%s"`, label)
	}

	options, key, err := builders[qt](optionCells, answer)
	if err != nil {
		return nil, err
	}

	q := &models.Question{
		ID:            synthesizeID(qt, index, loopIndex),
		Type:          qt,
		Question:      question,
		Options:       options,
		CorrectAnswer: key,
		Explanation:   models.DefaultExplanation,
		Difficulty:    models.DefaultDifficulty,
		Category:      models.DefaultCategory,
		Tags:          []string{label},
	}

	for _, id := range key.IDs {
		if !q.HasOption(id) {
			return nil, rowErrorf(`答案引用了不存在的选项: "%s"`, id)
		}
	}

	return q, nil
}

func buildSingleChoice(optionCells []string, answer string) ([]models.Option, models.AnswerKey, error) {
	options := choiceOptions(optionCells)
	if len(options) < 2 {
		return nil, models.AnswerKey{}, rowErrorf("单选题至少需要2个选项")
	}
	return options, models.SingleAnswer(strings.ToLower(answer)), nil
}

func buildMultipleChoice(optionCells []string, answer string) ([]models.Option, models.AnswerKey, error) {
	options := choiceOptions(optionCells)
	if len(options) < 2 {
		return nil, models.AnswerKey{}, rowErrorf("多选题至少需要2个选项")
	}
	ids := splitAnswerLetters(answer)
	if len(ids) == 0 {
		return nil, models.AnswerKey{}, rowErrorf("多选题答案不能为空")
	}
	return options, models.MultipleAnswer(ids), nil
}

func buildTrueFalse(optionCells []string, answer string) ([]models.Option, models.AnswerKey, error) {
	optionA := optionCells[0]
	optionB := optionCells[1]
	if optionA == "" {
		optionA = "正确"
	}
	if optionB == "" {
		optionB = "错误"
	}
	options := []models.Option{
		{ID: "a", Text: optionA},
		{ID: "b", Text: optionB},
	}
	return options, models.SingleAnswer(strings.ToLower(answer)), nil
}

// choiceOptions assigns ids a..g to the option cells, trims each and drops
// the empty ones.
func choiceOptions(cells []string) []models.Option {
	var options []models.Option
	for i, cell := range cells {
		text := strings.TrimSpace(cell)
		if text == "" {
			continue
		}
		options = append(options, models.Option{ID: string(optionIDs[i]), Text: text})
	}
	return options
}

// splitAnswerLetters strips whitespace and commas from a multiple-choice
// answer cell, lowercases it and splits the remainder into single letters.
func splitAnswerLetters(answer string) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' || r == '，' {
			return -1
		}
		return r
	}, answer)

	var ids []string
	for _, r := range strings.ToLower(stripped) {
		ids = append(ids, string(r))
	}
	return ids
}

// synthesizeID builds the question id from the type prefix and the row's
// index cell, falling back to the zero-based loop counter when the cell is
// empty, zero-padded to three digits.
func synthesizeID(qt models.QuestionType, index string, loopIndex int) string {
	seq := index
	if seq == "" {
		seq = fmt.Sprintf("%d", loopIndex)
	}
	for len(seq) < 3 {
		seq = "0" + seq
	}
	return qt.IDPrefix() + seq
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func rowTitle(question string, rowNum int) string {
	if question != "" {
		return question
	}
	return fmt.Sprintf("第%d行题目", rowNum)
}
