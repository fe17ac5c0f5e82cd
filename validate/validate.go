// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Format is the shape a field value must have
type Format int

const (
	FormatAny Format = iota
	FormatEmail
	FormatFrenchPhone
	FormatFrenchPostalCode
	FormatNumeric
	FormatBoolean
)

var (
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe      = regexp.MustCompile(`^(?:(?:\+|00)33|0)[1-9][0-9]{8}$`)
	phoneSepRe   = regexp.MustCompile(`[\s.\-]`)
	postalCodeRe = regexp.MustCompile(`^(?:0[1-9]|[1-8][0-9]|9[0-8])[0-9]{3}$`)
	numericRe    = regexp.MustCompile(`^[0-9]+(?:[.,][0-9]+)?$`)
)

// Messages shown next to the field
const (
	MsgRequired   = "this field is required"
	MsgEmail      = "invalid email address"
	MsgPhone      = "invalid French phone number"
	MsgPostalCode = "invalid French postal code"
	MsgNumeric    = "a number is expected"
	MsgBoolean    = "yes or no is expected"
	MsgNotObject  = "the form must be a JSON object"
)

// Rule constrains one payload field
type Rule struct {
	Field    string
	Required bool
	Format   Format
}

// Rules is the validation set of one request kind
type Rules []Rule

// Errors maps field names to a user-facing message. The pseudo-field "_"
// reports problems with the payload as a whole.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Normalize trims s and puts it in Unicode NFC form
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func Email(s string) bool {
	return emailRe.MatchString(Normalize(s))
}

// FrenchPhone accepts 0X XX XX XX XX, +33 X XX XX XX XX and 0033 forms,
// with spaces, dots or dashes as separators.
func FrenchPhone(s string) bool {
	return phoneRe.MatchString(phoneSepRe.ReplaceAllString(Normalize(s), ""))
}

// FrenchPostalCode accepts five digits from 01000 to 98999
func FrenchPostalCode(s string) bool {
	return postalCodeRe.MatchString(Normalize(s))
}

// Numeric accepts unsigned integers and decimals with a dot or a comma
func Numeric(s string) bool {
	return numericRe.MatchString(Normalize(s))
}

// Payload decodes a JSON object for validation. Numbers stay json.Number.
func Payload(raw []byte) (map[string]any, error) {
	if !json.Valid(raw) {
		return nil, Errors{"_": MsgNotObject}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, Errors{"_": MsgNotObject}
	}
	return fields, nil
}

// Check validates the JSON payload against the rules, returning nil when
// every rule passes.
func (rs Rules) Check(raw []byte) error {
	fields, err := Payload(raw)
	if err != nil {
		return err
	}

	errs := Errors{}
	for _, r := range rs {
		v, present := fields[r.Field]
		if !present || isEmpty(v) {
			if r.Required {
				errs[r.Field] = MsgRequired
			}
			continue
		}
		if msg := checkFormat(r.Format, v); msg != "" {
			errs[r.Field] = msg
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return Normalize(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

func checkFormat(f Format, v any) string {
	switch f {
	case FormatBoolean:
		switch x := v.(type) {
		case bool:
			return ""
		case string:
			switch strings.ToLower(Normalize(x)) {
			case "true", "false", "oui", "non":
				return ""
			}
		}
		return MsgBoolean
	case FormatNumeric:
		switch x := v.(type) {
		case json.Number:
			if Numeric(x.String()) {
				return ""
			}
		case string:
			if Numeric(x) {
				return ""
			}
		}
		return MsgNumeric
	}

	s, ok := v.(string)
	if !ok && f != FormatAny {
		if n, isNum := v.(json.Number); isNum {
			s, ok = n.String(), true
		}
	}

	switch f {
	case FormatEmail:
		if !ok || !Email(s) {
			return MsgEmail
		}
	case FormatFrenchPhone:
		if !ok || !FrenchPhone(s) {
			return MsgPhone
		}
	case FormatFrenchPostalCode:
		if !ok || !FrenchPostalCode(s) {
			return MsgPostalCode
		}
	}
	return ""
}
