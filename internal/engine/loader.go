package engine

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
	"unsafe"
)

// Loader policy: malformed or empty numeric cells are zero-filled; rows with
// a malformed year or fewer fields than the header are skipped whole. A file
// without a readable header or without the entity/year columns fails the
// whole load.

func unsafeToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// parseYear parses "1995" -> 1995. All-digit input only.
func parseYear(b []byte) (int32, bool) {
	if len(b) == 0 || len(b) > 4 {
		return 0, false
	}
	var n int32
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int32(c-'0')
	}
	return n, true
}

// parseMeasure parses a decimal death count. Cells it cannot read whole
// count as zero.
func parseMeasure(b []byte) float64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	var num float64
	i := 0
	neg := false
	if b[0] == '-' {
		neg = true
		i++
	}
	digits := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		num = num*10 + float64(b[i]-'0')
		i++
		digits++
	}
	if i < len(b) && b[i] == '.' {
		i++
		div := 10.0
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			num += float64(b[i]-'0') / div
			div *= 10
			i++
			digits++
		}
	}
	if i != len(b) || digits == 0 {
		return 0
	}
	if neg {
		return -num
	}
	return num
}

// cutField splits the next CSV field off a line, stripping quotes and
// unescaping doubled quotes. Quoted newlines are not supported — the source
// files are one row per line.
func cutField(line []byte) (field, rest []byte, more bool) {
	if len(line) > 0 && line[0] == '"' {
		for i := 1; i < len(line); i++ {
			if line[i] != '"' {
				continue
			}
			if i+1 < len(line) && line[i+1] == '"' {
				i++
				continue
			}
			field = line[1:i]
			if bytes.Contains(field, []byte(`""`)) {
				field = bytes.ReplaceAll(field, []byte(`""`), []byte(`"`))
			}
			if i+1 < len(line) && line[i+1] == ',' {
				return field, line[i+2:], true
			}
			return field, nil, false
		}
		return line[1:], nil, false
	}
	if i := bytes.IndexByte(line, ','); i != -1 {
		return line[:i], line[i+1:], true
	}
	return line, nil, false
}

// colLayout maps header positions to table columns.
type colLayout struct {
	entity     int
	code       int
	year       int
	measures   []int
	fieldCount int
}

// partial is one worker's parse output with a worker-local entity dictionary.
type partial struct {
	years     []int32
	entityIDs []int32
	dict      []string
	codes     []string
	dictMap   map[string]int32
	values    [][]float64
}

// Load reads one dataset file into a Table. The header row is parsed with
// encoding/csv (column names may be quoted); the body is scanned in parallel
// byte chunks aligned on newlines.
func Load(path, name, entityCol string) (*Table, error) {
	start := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	headerEnd := bytes.IndexByte(content, '\n')
	if headerEnd == -1 {
		return nil, fmt.Errorf("load %s: %s: missing header row", name, path)
	}
	headerLine := bytes.TrimRight(content[:headerEnd], "\r")
	body := content[headerEnd+1:]

	headers, err := csv.NewReader(strings.NewReader(string(headerLine))).Read()
	if err != nil {
		return nil, fmt.Errorf("load %s: parse header: %w", name, err)
	}

	layout := colLayout{entity: -1, code: -1, year: -1, fieldCount: len(headers)}
	var measureNames []string
	for i, h := range headers {
		h = strings.TrimSpace(h)
		switch {
		case strings.EqualFold(h, entityCol):
			layout.entity = i
		case strings.EqualFold(h, "Code"):
			layout.code = i
		case strings.EqualFold(h, "Year"):
			layout.year = i
		default:
			layout.measures = append(layout.measures, i)
			measureNames = append(measureNames, h)
		}
	}
	if layout.entity == -1 {
		return nil, fmt.Errorf("load %s: %s: entity column %q not found", name, path, entityCol)
	}
	if layout.year == -1 {
		return nil, fmt.Errorf("load %s: %s: Year column not found", name, path)
	}

	// Parallel parse: each worker gets a newline-aligned chunk and builds
	// a partial table with a local entity dictionary.
	numWorkers := runtime.NumCPU()
	if len(body)/numWorkers == 0 {
		numWorkers = 1
	}
	chunkSize := len(body) / numWorkers

	partials := make([]*partial, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		s, e := w*chunkSize, (w+1)*chunkSize
		if w == numWorkers-1 {
			e = len(body)
		}
		s, e = alignChunk(body, s, e)

		wg.Add(1)
		go func(idx, s, e int) {
			defer wg.Done()
			partials[idx] = parseChunk(body[s:e], layout)
		}(w, s, e)
	}
	wg.Wait()

	// Merge: workers processed consecutive chunks, so appending in worker
	// order preserves source row order. Local dictionary IDs are remapped
	// into the table's global dictionary.
	t := NewTable(name, measureNames)
	for _, p := range partials {
		remap := make([]int32, len(p.dict))
		for lid, s := range p.dict {
			gid, ok := t.entityIndex[s]
			if !ok {
				gid = int32(len(t.EntityDict))
				t.EntityDict = append(t.EntityDict, s)
				t.Codes = append(t.Codes, p.codes[lid])
				t.entityIndex[s] = gid
			}
			remap[lid] = gid
		}
		for _, lid := range p.entityIDs {
			t.EntityIDs = append(t.EntityIDs, remap[lid])
		}
		t.Years = append(t.Years, p.years...)
		for c := range t.Values {
			t.Values[c] = append(t.Values[c], p.values[c]...)
		}
	}

	for _, y := range t.Years {
		if t.MinYear == 0 || int(y) < t.MinYear {
			t.MinYear = int(y)
		}
		if int(y) > t.MaxYear {
			t.MaxYear = int(y)
		}
	}

	log.Printf("loaded %s: %d rows, %d entities, %d measure columns in %v",
		name, t.NumRows(), len(t.EntityDict), len(t.Columns), time.Since(start))
	return t, nil
}

// alignChunk moves both bounds forward to the next newline so no worker
// starts or ends mid-row.
func alignChunk(body []byte, start, end int) (int, int) {
	if start > 0 {
		if i := bytes.IndexByte(body[start:], '\n'); i != -1 {
			start += i + 1
		} else {
			start = len(body)
		}
	}
	if end < len(body) {
		if i := bytes.IndexByte(body[end:], '\n'); i != -1 {
			end += i + 1
		} else {
			end = len(body)
		}
	}
	return start, end
}

func parseChunk(chunk []byte, layout colLayout) *partial {
	p := &partial{
		dictMap: make(map[string]int32),
		values:  make([][]float64, len(layout.measures)),
	}

	fields := make([][]byte, 0, layout.fieldCount)
	pos := 0
	for pos < len(chunk) {
		nextPos := len(chunk)
		if i := bytes.IndexByte(chunk[pos:], '\n'); i != -1 {
			nextPos = pos + i
		}
		line := bytes.TrimRight(chunk[pos:nextPos], "\r")
		pos = nextPos + 1

		if len(line) == 0 {
			continue
		}

		fields = fields[:0]
		rest := line
		for {
			f, r, more := cutField(rest)
			fields = append(fields, f)
			if !more {
				break
			}
			rest = r
		}
		if len(fields) < layout.fieldCount {
			continue
		}

		year, ok := parseYear(fields[layout.year])
		if !ok {
			continue
		}

		s := unsafeToString(fields[layout.entity])
		id, ok := p.dictMap[s]
		if !ok {
			id = int32(len(p.dict))
			owned := string(fields[layout.entity])
			p.dict = append(p.dict, owned)
			code := ""
			if layout.code != -1 {
				code = string(fields[layout.code])
			}
			p.codes = append(p.codes, code)
			p.dictMap[owned] = id
		}

		p.entityIDs = append(p.entityIDs, id)
		p.years = append(p.years, year)
		for k, mi := range layout.measures {
			p.values[k] = append(p.values[k], parseMeasure(fields[mi]))
		}
	}
	return p
}
