// Package faq turns markdown/text documents into question/answer datasets.
package faq

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

const defaultSection = "General"

var (
	questionPrefixes = []string{"Q:", "Question:"}
	answerPrefixes   = []string{"A:", "Answer:"}
)

// Extract reads FAQ entries from a document.
//
// "#"/"##" headings open a section. A "###" heading or a "Q:" line opens a
// question; the lines after it (an optional "A:" prefix is stripped) form the
// answer until the next heading or question. Questions without an answer are
// dropped.
func Extract(content string) []domain.FAQEntry {
	var (
		entries  []domain.FAQEntry
		section  = defaultSection
		question string
		answer   []string
	)

	flush := func() {
		if question != "" && len(answer) > 0 {
			entries = append(entries, domain.FAQEntry{
				ID:       len(entries) + 1,
				Section:  section,
				Question: question,
				Answer:   strings.Join(answer, " "),
			})
		}
		question, answer = "", nil
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), domain.MaxUploadBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "### "):
			flush()
			question = strings.TrimSpace(strings.TrimPrefix(line, "### "))
		case strings.HasPrefix(line, "#"):
			flush()
			if title := strings.TrimSpace(strings.TrimLeft(line, "#")); title != "" {
				section = title
			}
		case hasAnyPrefix(line, questionPrefixes):
			flush()
			question = trimAnyPrefix(line, questionPrefixes)
		case question != "":
			if text := trimAnyPrefix(line, answerPrefixes); text != "" {
				answer = append(answer, text)
			}
		}
	}
	flush()
	return entries
}

// WriteCSV writes entries with an id,section,question,answer header.
func WriteCSV(w io.Writer, entries []domain.FAQEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "section", "question", "answer"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{strconv.Itoa(e.ID), e.Section, e.Question, e.Answer}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func trimAnyPrefix(s string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(strings.TrimPrefix(s, p))
		}
	}
	return s
}
