package tally

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Column names are matched on the English half of the bilingual header
// ("Merge With/Fusionné avec" -> "Merge With").
const (
	colRidingNumber  = "Electoral District Number"
	colRidingName    = "Electoral District Name"
	colRidingNameEn  = "Electoral District Name_English"
	colStation       = "Polling Station Number"
	colStationName   = "Polling Station Name"
	colRejected      = "Rejected Ballots for Polling Station"
	colElectors      = "Electors for Polling Station"
	colMergeWith     = "Merge With"
	colAffiliation   = "Political Affiliation Name_English"
	colFirstName     = "Candidate's First Name"
	colMiddleName    = "Candidate's Middle Name"
	colLastName      = "Candidate's Family Name"
	colVotes         = "Candidate Poll Votes Count"
	colElected       = "Elected Candidate Indicator"
	colCandidate     = "Candidate"
	colVotesObtained = "Votes Obtained"
	colMajority      = "Majority"
	colMajorityPct   = "Majority Percentage"
)

// Row is one candidate line from a poll-by-poll results file.
type Row struct {
	Line         int
	RidingNumber int
	RidingName   string
	Station      string
	StationName  string
	Rejected     int
	Electors     int
	MergeWith    string
	Affiliation  string
	FirstName    string
	MiddleName   string
	LastName     string
	Votes        int
	Elected      bool
}

// CandidateName joins the non-empty name parts with single spaces.
func (r Row) CandidateName() string {
	var parts []string
	for _, p := range []string{r.FirstName, r.MiddleName, r.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

type table struct {
	col     map[string]int
	records [][]string
}

func (t *table) get(rec []string, names ...string) string {
	for _, name := range names {
		i, ok := t.col[name]
		if !ok || i >= len(rec) {
			continue
		}
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func (t *table) require(names ...string) error {
	for _, k := range names {
		if _, ok := t.col[k]; !ok {
			return fmt.Errorf("missing required column: %s", k)
		}
	}
	return nil
}

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	if i := strings.Index(h, "/"); i >= 0 {
		h = h[:i]
	}
	return norm.NFC.String(strings.TrimSpace(h))
}

// readTable decodes the whole file. Older vintages are Windows-1252 rather
// than UTF-8; those bytes are transcoded before parsing.
func readTable(r io.Reader) (*table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		raw, err = charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("transcode windows-1252: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, errors.New("csv has no header row")
	}

	col := map[string]int{}
	for i, h := range records[0] {
		k := headerKey(h)
		if _, dup := col[k]; !dup {
			col[k] = i
		}
	}
	return &table{col: col, records: records[1:]}, nil
}

// ReadPollRows parses a poll-by-poll results file for one riding.
func ReadPollRows(r io.Reader) ([]Row, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require(colStation, colAffiliation); err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(t.records))
	for i, rec := range t.records {
		row := Row{
			Line:        i + 2,
			RidingName:  t.get(rec, colRidingNameEn, colRidingName),
			Station:     t.get(rec, colStation),
			StationName: t.get(rec, colStationName),
			Rejected:    count(t.get(rec, colRejected)),
			Electors:    count(t.get(rec, colElectors)),
			MergeWith:   t.get(rec, colMergeWith),
			FirstName:   t.get(rec, colFirstName),
			MiddleName:  t.get(rec, colMiddleName),
			LastName:    t.get(rec, colLastName),
			Affiliation: t.get(rec, colAffiliation),
			Votes:       count(t.get(rec, colVotes)),
			Elected:     strings.EqualFold(t.get(rec, colElected), "Y"),
		}
		row.RidingNumber, _ = leadingInt(t.get(rec, colRidingNumber))
		out = append(out, row)
	}
	return out, nil
}

// ReadPollFile opens path and parses it with ReadPollRows.
func ReadPollFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open poll file: %w", err)
	}
	defer f.Close()

	rows, err := ReadPollRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// leadingInt parses the leading run of decimal digits, so "12A" is 12.
// It reports false when s does not start with a digit.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// count parses a vote or ballot count, tolerating thousands separators.
// Blank or unparseable values count as zero.
func count(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	n, _ := leadingInt(s)
	return n
}
