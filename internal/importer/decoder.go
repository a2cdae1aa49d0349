package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/spencereven/Quiz/internal/models"
)

// Format identifies a supported import file format.
type Format int

const (
	FormatJSON Format = iota
	FormatCSV
	FormatExcel
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "JSON"
	case FormatCSV:
		return "CSV"
	case FormatExcel:
		return "Excel"
	}
	return "unknown"
}

// formatByExt is the closed table of accepted file extensions.
var formatByExt = map[string]Format{
	".json": FormatJSON,
	".csv":  FormatCSV,
	".xlsx": FormatExcel,
	".xls":  FormatExcel,
}

// DetectFormat resolves a filename to its import format by extension.
func DetectFormat(filename string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := formatByExt[ext]
	return f, ok
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeCSV decodes raw CSV bytes into rows of text cells. A UTF-8 BOM is
// tolerated and rows may carry differing field counts; header detection is
// the normalizer's job, not the decoder's.
func DecodeCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// ole2Signature marks a legacy BIFF (.xls) compound document.
var ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// DecodeExcel decodes the first sheet of an Excel workbook into rows of raw
// cell values. OOXML (.xlsx) and legacy BIFF (.xls) containers are told
// apart by their content signature, not the filename.
func DecodeExcel(data []byte) ([][]string, error) {
	if bytes.HasPrefix(data, ole2Signature) {
		return decodeLegacyExcel(data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func decodeLegacyExcel(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}

	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("read legacy sheet: %w", err)
	}

	var rows [][]string
	for i := 0; i <= sheet.GetNumberRows(); i++ {
		r, err := sheet.GetRow(i)
		if err != nil {
			continue
		}
		var cells []string
		for _, col := range r.GetCols() {
			cells = append(cells, col.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// DecodeJSON parses a category-grouped questions document.
func DecodeJSON(data []byte) (*models.QuestionsDocument, error) {
	var doc models.QuestionsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse questions document: %w", err)
	}
	return &doc, nil
}

// FlattenDocument validates a pre-normalized questions document and returns
// the questions of every known category in order, with the category key
// stamped as each question's type. Invalid entries are reported as import
// errors numbered by their 1-based position within the document; they never
// abort the rest of the document.
func FlattenDocument(doc *models.QuestionsDocument) ([]models.Question, []models.ImportError) {
	var questions []models.Question
	errs := []models.ImportError{}

	pos := 0
	for _, qt := range models.QuestionTypes {
		cat, ok := doc.Categories[string(qt)]
		if !ok {
			continue
		}
		for _, q := range cat.Questions {
			pos++
			q.Type = qt
			if err := validateQuestion(&q, qt); err != nil {
				errs = append(errs, models.ImportError{
					Row:      pos,
					Error:    err.Error(),
					Question: q.Question,
				})
				continue
			}
			questions = append(questions, q)
		}
	}

	return questions, errs
}

// validateQuestion checks a pre-normalized question against the schema:
// required fields present, at least two options, and a correctAnswer of the
// right shape whose ids all exist in options.
func validateQuestion(q *models.Question, qt models.QuestionType) error {
	if q.ID == "" || q.Question == "" {
		return fmt.Errorf("题目缺少必填字段")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("题目至少需要2个选项")
	}

	if qt == models.TypeMultipleChoice {
		if !q.CorrectAnswer.Multiple || len(q.CorrectAnswer.IDs) == 0 {
			return fmt.Errorf("多选题答案必须是非空数组")
		}
	} else {
		if q.CorrectAnswer.Multiple || len(q.CorrectAnswer.IDs) != 1 || q.CorrectAnswer.IDs[0] == "" {
			return fmt.Errorf("答案必须是单个选项")
		}
	}

	for _, id := range q.CorrectAnswer.IDs {
		if !q.HasOption(id) {
			return fmt.Errorf(`答案引用了不存在的选项: "%s"`, id)
		}
	}

	if q.Explanation == "" {
		q.Explanation = models.DefaultExplanation
	}
	if q.Difficulty == "" {
		q.Difficulty = models.DefaultDifficulty
	}
	if q.Category == "" {
		q.Category = models.DefaultCategory
	}

	return nil
}
