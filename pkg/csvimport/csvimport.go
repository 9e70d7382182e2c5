// Package csvimport parses contact uploads. Headers are matched through
// common aliases and rows widened by an unquoted comma inside the company
// column are merged back before validation.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	ColFirstName  = "first_name"
	ColLastName   = "last_name"
	ColPhone      = "phone"
	ColEmail      = "email"
	ColCompany    = "company"
	ColLoanAmount = "loan_amount"
)

var aliases = map[string]string{
	"phone":          ColPhone,
	"phone_number":   ColPhone,
	"phone number":   ColPhone,
	"mobile":         ColPhone,
	"mobile_number":  ColPhone,
	"mobile number":  ColPhone,
	"contact_number": ColPhone,
	"email":          ColEmail,
	"email_address":  ColEmail,
	"email address":  ColEmail,
	"e-mail":         ColEmail,
	"first_name":     ColFirstName,
	"firstname":      ColFirstName,
	"first name":     ColFirstName,
	"name":           ColFirstName,
	"last_name":      ColLastName,
	"lastname":       ColLastName,
	"last name":      ColLastName,
	"surname":        ColLastName,
	"company":        ColCompany,
	"company_name":   ColCompany,
	"company name":   ColCompany,
	"organization":   ColCompany,
	"organisation":   ColCompany,
	"loan_amount":    ColLoanAmount,
	"loan amount":    ColLoanAmount,
	"amount":         ColLoanAmount,
}

var (
	ErrEmpty        = errors.New("csv has no header row")
	ErrNoIdentifier = errors.New("csv needs a phone or email column")

	rePhone = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Row is one accepted record. Line is the physical line in the upload, the
// header being line 1.
type Row struct {
	Line       int
	FirstName  string
	LastName   string
	Phone      string
	Email      string
	Company    string
	LoanAmount string
	Repaired   bool
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Message) }

type Result struct {
	Rows   []Row
	Errors []RowError
	// Unknown lists header cells that matched no alias; they are ignored.
	Unknown []string
}

// Total counts every data row seen, accepted or not.
func (r *Result) Total() int { return len(r.Rows) + len(r.Errors) }

// Parse reads the whole upload. Only a missing or unusable header is an
// error; bad rows are reported in Result.Errors.
func Parse(in io.Reader) (*Result, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	res := &Result{}
	cols := make([]string, len(header))
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		c, ok := aliases[key]
		if !ok {
			res.Unknown = append(res.Unknown, h)
			continue
		}
		if _, dup := index[c]; dup {
			continue
		}
		cols[i] = c
		index[c] = i
	}
	_, hasPhone := index[ColPhone]
	_, hasEmail := index[ColEmail]
	if !hasPhone && !hasEmail {
		return nil, ErrNoIdentifier
	}
	companyAt, hasCompany := index[ColCompany]

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Errors = append(res.Errors, RowError{Row: pe.StartLine, Message: pe.Err.Error()})
				continue
			}
			return nil, err
		}
		line, _ := r.FieldPos(0)
		if blank(rec) {
			continue
		}

		repaired := false
		switch {
		case len(rec) > len(header) && hasCompany:
			rec = mergeInto(rec, companyAt, len(rec)-len(header))
			repaired = true
		case len(rec) > len(header):
			res.Errors = append(res.Errors, RowError{Row: line, Message: fmt.Sprintf("has %d columns, expected %d", len(rec), len(header))})
			continue
		case len(rec) < len(header):
			res.Errors = append(res.Errors, RowError{Row: line, Message: fmt.Sprintf("has %d columns, expected %d; a value is missing", len(rec), len(header))})
			continue
		}

		row := Row{Line: line, Repaired: repaired}
		for i, c := range cols {
			v := strings.TrimSpace(rec[i])
			switch c {
			case ColFirstName:
				row.FirstName = v
			case ColLastName:
				row.LastName = v
			case ColPhone:
				row.Phone = NormalizePhone(v)
			case ColEmail:
				row.Email = strings.ToLower(v)
			case ColCompany:
				row.Company = v
			case ColLoanAmount:
				row.LoanAmount = strings.ReplaceAll(v, ",", "")
			}
		}
		if msg := validate(row); msg != "" {
			res.Errors = append(res.Errors, RowError{Row: line, Message: msg})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// mergeInto joins extra+1 cells starting at col back into one value.
func mergeInto(rec []string, col, extra int) []string {
	out := make([]string, 0, len(rec)-extra)
	out = append(out, rec[:col]...)
	out = append(out, strings.Join(rec[col:col+extra+1], ","))
	return append(out, rec[col+extra+1:]...)
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// NormalizePhone strips separators and the +91/0 prefixes from an Indian
// mobile number.
func NormalizePhone(s string) string {
	s = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	switch {
	case len(s) == 12 && strings.HasPrefix(s, "91"):
		s = s[2:]
	case len(s) == 11 && strings.HasPrefix(s, "0"):
		s = s[1:]
	}
	return s
}

func ValidPhone(s string) bool { return rePhone.MatchString(s) }

func ValidEmail(s string) bool { return reEmail.MatchString(s) }

func validate(r Row) string {
	switch {
	case r.Phone == "" && r.Email == "":
		return "phone or email is required"
	case r.Phone != "" && !ValidPhone(r.Phone):
		return "phone must be a 10 digit mobile number"
	case r.Email != "" && !ValidEmail(r.Email):
		return "email is not valid"
	}
	return ""
}
