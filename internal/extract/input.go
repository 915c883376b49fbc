package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"carbonequip/internal"
)

// ExtractFromInput builds one record from a local file. inputType is html,
// pdf or text; the record's link is the file path.
func ExtractFromInput(inputType string, input string, seed Seed) (internal.RawRecord, error) {
	blob, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	text, doc, err := parseContent(strings.ToLower(inputType), blob)
	if err != nil {
		return nil, err
	}
	link, err := filepath.Abs(input)
	if err != nil {
		link = input
	}
	return BuildRecord(text, doc, seed, link, time.Now()), nil
}

func parseContent(inputType string, blob []byte) (string, *goquery.Document, error) {
	switch inputType {
	case "html":
		doc, text, err := ParseHTML(blob)
		return text, doc, err
	case "pdf":
		text, err := ParsePDF(blob)
		return text, nil, err
	case "text", "txt":
		return strings.Join(splitLines(string(blob)), "\n"), nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

// InputTypeFromPath guesses the input type from a file extension.
func InputTypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "html"
	case ".pdf":
		return "pdf"
	default:
		return "text"
	}
}
