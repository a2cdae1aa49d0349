package questions

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/spencereven/Quiz/internal/models"
)

// fakeStore records calls and serves canned data to exercise the service
// and handler without a database.
type fakeStore struct {
	questions map[models.QuestionType][]models.Question

	upserted [][]models.Question
	cleared  bool

	upsertErr error
	queryErr  error
	clearErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{questions: make(map[models.QuestionType][]models.Question)}
}

func (f *fakeStore) GetByType(ctx context.Context, qt models.QuestionType) ([]models.Question, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.questions[qt], nil
}

func (f *fakeStore) GetRandom(ctx context.Context, qt models.QuestionType) (*models.Question, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	qs := f.questions[qt]
	if len(qs) == 0 {
		return nil, nil
	}
	return &qs[0], nil
}

func (f *fakeStore) UpsertBatch(ctx context.Context, qs []models.Question) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, qs)
	for _, q := range qs {
		f.questions[q.Type] = append(f.questions[q.Type], q)
	}
	return len(qs), nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	f.questions = make(map[models.QuestionType][]models.Question)
	return nil
}

const csvFixture = "1,单选题,2+2=?,4,5,,,,,,a\n" +
	"2,填空题,bad row,x,y,,,,,,a\n" +
	"3,多选题,pick evens,2,3,4,,,,,\"a,c\"\n"

func TestService_ImportCSV(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	summary, err := service.ImportFile(context.Background(), "questions.csv", []byte(csvFixture))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if summary.SuccessCount != 2 {
		t.Errorf("expected 2 accepted, got %d", summary.SuccessCount)
	}
	if summary.ErrorCount != 1 {
		t.Errorf("expected 1 rejected, got %d", summary.ErrorCount)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Row != 2 {
		t.Errorf("unexpected errors: %+v", summary.Errors)
	}

	if len(store.upserted) != 1 {
		t.Fatalf("expected one batch upsert, got %d", len(store.upserted))
	}
	if len(store.upserted[0]) != 2 {
		t.Errorf("expected batch of 2, got %d", len(store.upserted[0]))
	}
}

func TestService_ImportNothingAcceptedSkipsStore(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	summary, err := service.ImportFile(context.Background(), "bad.csv",
		[]byte("1,填空题,q,x,y,,,,,,a\n"))
	if err != nil {
		t.Fatalf("row-level failures are not fatal, got: %v", err)
	}

	if summary.SuccessCount != 0 || summary.ErrorCount != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(store.upserted) != 0 {
		t.Error("a batch with zero accepted rows must not touch the store")
	}
}

func TestService_ImportExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := []interface{}{"1", "单选题", "2+2=?", "4", "5", "", "", "", "", "", "a"}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	store := newFakeStore()
	service := NewService(store)

	summary, err := service.ImportFile(context.Background(), "questions.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if summary.SuccessCount != 1 || summary.ErrorCount != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(store.questions[models.TypeSingleChoice]) != 1 {
		t.Errorf("question not persisted: %+v", store.questions)
	}
}

func TestService_ImportUnsupportedFormat(t *testing.T) {
	service := NewService(newFakeStore())

	_, err := service.ImportFile(context.Background(), "questions.txt", []byte("whatever"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got: %v", err)
	}
}

func TestService_ImportJSONDocument(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	doc := []byte(`{
		"version": "1.0.0",
		"lastUpdated": "2024-01-01T00:00:00Z",
		"categories": {
			"trueFalse": {
				"name": "判断题",
				"description": "判断陈述是否正确",
				"questions": [{
					"id": "tr001",
					"question": "the sky is blue",
					"options": [{"id":"a","text":"正确"},{"id":"b","text":"错误"}],
					"correctAnswer": "a"
				}]
			}
		}
	}`)

	summary, err := service.ImportFile(context.Background(), "questions.json", doc)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if summary.SuccessCount != 1 || summary.ErrorCount != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(store.questions[models.TypeTrueFalse]) != 1 {
		t.Errorf("question not persisted: %+v", store.questions)
	}
}

func TestService_ImportDecodeError(t *testing.T) {
	service := NewService(newFakeStore())

	_, err := service.ImportFile(context.Background(), "questions.json", []byte("not json"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got: %v", err)
	}
	if decodeErr.Format != "JSON" {
		t.Errorf("expected format JSON, got %q", decodeErr.Format)
	}
}

func TestService_ImportStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("connection lost")
	service := NewService(store)

	_, err := service.ImportFile(context.Background(), "questions.csv",
		[]byte("1,单选题,q,x,y,,,,,,a\n"))
	if err == nil {
		t.Fatal("expected store failure to propagate")
	}
}

func TestService_ImportTwiceIsIdempotent(t *testing.T) {
	store := newFakeStore()
	service := NewService(store)

	data := []byte("1,单选题,q,x,y,,,,,,a\n")
	for i := 0; i < 2; i++ {
		if _, err := service.ImportFile(context.Background(), "questions.csv", data); err != nil {
			t.Fatalf("import %d: %v", i+1, err)
		}
	}

	// Both batches carry the same id; the store's upsert keyed by id keeps
	// one record.
	ids := make(map[string]bool)
	for _, batch := range store.upserted {
		for _, q := range batch {
			ids[q.ID] = true
		}
	}
	if len(ids) != 1 {
		t.Errorf("expected the same id in both batches, got %v", ids)
	}
}

func TestService_GetQuestion(t *testing.T) {
	store := newFakeStore()
	store.questions[models.TypeSingleChoice] = []models.Question{{ID: "si001", Type: models.TypeSingleChoice}}
	service := NewService(store)

	q, err := service.GetQuestion(context.Background(), models.TypeSingleChoice)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if q == nil || q.ID != "si001" {
		t.Errorf("unexpected question: %+v", q)
	}

	q, err = service.GetQuestion(context.Background(), models.TypeTrueFalse)
	if err != nil {
		t.Fatalf("an empty type is not an error, got: %v", err)
	}
	if q != nil {
		t.Errorf("expected nil for empty type, got %+v", q)
	}
}

func TestService_ClearThenGet(t *testing.T) {
	store := newFakeStore()
	store.questions[models.TypeSingleChoice] = []models.Question{{ID: "si001"}}
	service := NewService(store)

	if err := service.Clear(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !store.cleared {
		t.Error("store was not cleared")
	}

	for _, qt := range models.QuestionTypes {
		q, err := service.GetQuestion(context.Background(), qt)
		if err != nil {
			t.Fatalf("get after clear: %v", err)
		}
		if q != nil {
			t.Errorf("expected no question of type %s after clear, got %+v", qt, q)
		}
	}
}
