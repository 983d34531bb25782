// Package importer is the plain-text collaborator feeding the deck
// builder. It owns delimiter parsing and produces Record values; the
// core only ever accepts the resulting cards through the store.
package importer

import "strings"

// Record is one parsed flashcard-to-be. Term and Definition are
// mandatory; the rest is optional enrichment.
type Record struct {
	Term       string
	Definition string
	Example    string
	Notes      string
	Hyperlink  string
}

// RecordsFromPaste parses "Term - Definition" lines into records. The
// split happens on the first '-' of each line; a hyphen inside the
// definition is kept as-is. Blank lines and lines without both sides
// are skipped.
func RecordsFromPaste(raw string) []Record {
	var out []Record
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		term, def, ok := strings.Cut(trimmed, "-")
		if !ok {
			continue
		}
		term = strings.TrimSpace(term)
		def = strings.TrimSpace(def)
		if term == "" || def == "" {
			continue
		}

		out = append(out, Record{Term: term, Definition: def})
	}
	return out
}

// RecordsFromTabbed parses tab-separated lines: term, definition and
// optionally example, notes and hyperlink.
func RecordsFromTabbed(raw string) []Record {
	var out []Record
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		rec := Record{
			Term:       strings.TrimSpace(fields[0]),
			Definition: strings.TrimSpace(fields[1]),
		}
		if rec.Term == "" || rec.Definition == "" {
			continue
		}
		if len(fields) > 2 {
			rec.Example = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			rec.Notes = strings.TrimSpace(fields[3])
		}
		if len(fields) > 4 {
			rec.Hyperlink = strings.TrimSpace(fields[4])
		}
		out = append(out, rec)
	}
	return out
}
