// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"regexp"
	"strings"
	"time"
)

// Lang selects the database product group a query runs against.
type Lang string

const (
	LangChinese Lang = "Chinese"
	LangEnglish Lang = "English"
)

// Query is one literature-search request.
type Query struct {
	// Expression is the expert-mode search expression.
	Expression string

	// Lang selects which database products to search. Defaults to Chinese.
	Lang Lang

	// DateUpper optionally bounds publication dates from above. Free-form;
	// normalized with NormalizeDateUpper before use.
	DateUpper string
}

// defaultDateUpper is used when a query carries no usable date bound.
const defaultDateUpper = "20220101"

var (
	parenRe  = regexp.MustCompile(`（.*?）|\(.*?\)`)
	spaceRe  = regexp.MustCompile(`\s+`)
	digitsRe = regexp.MustCompile(`(\d{4})(\d{1,2})(\d{1,2})`)
)

// dateGlyphs maps CJK date markers and separator variants to canonical form.
var dateGlyphs = strings.NewReplacer(
	"年", "-",
	"月", "-",
	"日", "",
	"/", "-",
	".", "-",
	"．", "-",
)

// dateFormats are tried in order against both the dashed and the collapsed
// candidate. Month-only formats resolve to the first day of the month.
var dateFormats = []string{"2006-1-2", "20060102", "2006-1", "200601"}

// NormalizeDateUpper coerces a free-form date value into the YYYYMMDD form
// the search service expects for its publication-date upper bound. Handles
// CJK date glyphs, mixed separators and bare digit runs. Returns "" when
// the value cannot be interpreted as a date.
func NormalizeDateUpper(value string) string {
	chunk := strings.TrimSpace(value)
	if chunk == "" {
		return ""
	}
	chunk = parenRe.ReplaceAllString(chunk, "")
	chunk = dateGlyphs.Replace(chunk)
	chunk = spaceRe.ReplaceAllString(chunk, "")
	if chunk == "" {
		return ""
	}

	candidates := []string{chunk, strings.ReplaceAll(chunk, "-", "")}
	for _, candidate := range candidates {
		for _, format := range dateFormats {
			t, err := time.Parse(format, candidate)
			if err != nil {
				continue
			}
			if format == "2006-1" || format == "200601" {
				t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
			}
			return t.Format("20060102")
		}
	}

	if m := digitsRe.FindStringSubmatch(candidates[0]); m != nil {
		t, err := time.Parse("2006-1-2", m[1]+"-"+strings.TrimLeft(m[2], "0")+"-"+strings.TrimLeft(m[3], "0"))
		if err == nil {
			return t.Format("20060102")
		}
	}
	return ""
}

// dateUpper returns the normalized publication-date bound for the query,
// falling back to the service default when absent or unparseable.
func (q Query) dateUpper() string {
	if normalized := NormalizeDateUpper(q.DateUpper); normalized != "" {
		return normalized
	}
	return defaultDateUpper
}

// products returns the database product group for the query language.
func (q Query) products() string {
	if q.Lang == LangEnglish {
		return "WWJD,WWPD"
	}
	return "CJFD,CDFD,CMFD,CPFD,CCND,IPFD,CAPJ"
}
