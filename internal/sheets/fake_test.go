package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

// fakeService is an in-memory single-spreadsheet backend addressed by id.
type fakeService struct {
	mu        sync.Mutex
	sheets    []Sheet
	cells     map[string]map[string]interface{} // sheet id -> "B2" -> value
	writes    [][]ValueRange
	reads     int
	addErr    error
	writeErr  error
	readErrs  []error
	addCalled int
}

func newFakeService(sheets ...Sheet) *fakeService {
	f := &fakeService{cells: map[string]map[string]interface{}{}}
	for _, s := range sheets {
		f.sheets = append(f.sheets, s)
		f.cells[s.ID] = map[string]interface{}{}
	}
	return f
}

func (f *fakeService) set(sheetID, cell string, v interface{}) {
	f.cells[sheetID][cell] = v
}

func (f *fakeService) Addressing() AddressMode { return AddressByID }

func (f *fakeService) ListSheets(ctx context.Context) ([]Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sheet(nil), f.sheets...), nil
}

func (f *fakeService) AddSheet(ctx context.Context, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalled++
	if f.addErr != nil {
		return f.addErr
	}
	id := fmt.Sprintf("sheet%d", len(f.sheets)+1)
	f.sheets = append(f.sheets, Sheet{ID: id, Title: title})
	f.cells[id] = map[string]interface{}{}
	return nil
}

var rangeRe = regexp.MustCompile(`^([^!]+)!([A-Z]+)(\d+):([A-Z]+)(\d+)$`)

func columnIndex(letters string) int {
	n := 0
	for _, c := range letters {
		n = n*26 + int(c-'A'+1)
	}
	return n
}

func (f *fakeService) ReadRanges(ctx context.Context, ranges []string) ([][][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out [][][]interface{}
	for _, r := range ranges {
		m := rangeRe.FindStringSubmatch(r)
		if m == nil {
			return nil, fmt.Errorf("bad range %q", r)
		}
		cells, ok := f.cells[m[1]]
		if !ok {
			return nil, fmt.Errorf("unknown sheet %q", m[1])
		}
		c0, c1 := columnIndex(m[2]), columnIndex(m[4])
		r0, _ := strconv.Atoi(m[3])
		r1, _ := strconv.Atoi(m[5])
		var rows [][]interface{}
		for row := r0; row <= r1; row++ {
			var vals []interface{}
			for col := c0; col <= c1; col++ {
				vals = append(vals, cells[fmt.Sprintf("%s%d", ColumnLetter(col), row)])
			}
			// trim trailing empties like the real APIs do
			for len(vals) > 0 && vals[len(vals)-1] == nil {
				vals = vals[:len(vals)-1]
			}
			rows = append(rows, vals)
		}
		for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
			rows = rows[:len(rows)-1]
		}
		out = append(out, rows)
	}
	return out, nil
}

func (f *fakeService) WriteRanges(ctx context.Context, updates []ValueRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, updates)
	if f.writeErr != nil {
		return f.writeErr
	}
	for _, u := range updates {
		m := rangeRe.FindStringSubmatch(u.Range)
		if m == nil {
			return fmt.Errorf("bad range %q", u.Range)
		}
		f.cells[m[1]][m[2]+m[3]] = u.Values[0][0]
	}
	return nil
}

type statusErr struct {
	status int
	body   string
}

func (e *statusErr) Error() string { return fmt.Sprintf("status=%d", e.status) }
func (e *statusErr) HTTPStatus() int { return e.status }
func (e *statusErr) ResponseBody() string { return e.body }
