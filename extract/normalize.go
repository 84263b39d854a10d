// Copyright 2026 KnowStack Authors
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


package extract

import (
	"regexp"
	"strings"
)

var (
	hyphenLineBreak = regexp.MustCompile(`(\w)-\s*\n\s*(\w)`)
	lineBreakRuns   = regexp.MustCompile(`\s*\n\s*`)
	spaceRuns       = regexp.MustCompile(`[ \t]+`)
)

// NormalizeText cleans extracted text for chunking and retrieval:
// non-breaking and zero-width spaces are removed, words hyphenated across
// line breaks are rejoined, and whitespace runs are collapsed. Blank lines
// do not survive; every line break run becomes a single newline.
func NormalizeText(text string) string {
	cleaned := strings.ReplaceAll(text, " ", " ")
	cleaned = strings.ReplaceAll(cleaned, "​", "")
	cleaned = hyphenLineBreak.ReplaceAllString(cleaned, "$1$2")
	cleaned = lineBreakRuns.ReplaceAllString(cleaned, "\n")
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
