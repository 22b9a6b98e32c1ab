package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// docxParser extracts paragraph text from DOCX files. A DOCX file is a
// zip archive whose body lives in word/document.xml; only top-level
// paragraphs are read, matching common extractors.
type docxParser struct{}

var _ Parser = (*docxParser)(nil)

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

func (p *docxParser) Parse(data []byte) (*Extraction, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: docx extraction failed: %v", ErrParsing, err)
	}

	var body []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: docx extraction failed: %v", ErrParsing, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: docx extraction failed: %v", ErrParsing, err)
		}
		body = buf.Bytes()
		break
	}
	if body == nil {
		return nil, fmt.Errorf("%w: docx extraction failed: word/document.xml missing", ErrParsing)
	}

	var doc docxDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: docx extraction failed: %v", ErrParsing, err)
	}

	var paragraphs []string
	for _, para := range doc.Body.Paragraphs {
		var text strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Texts {
				text.WriteString(t)
			}
		}
		if s := text.String(); strings.TrimSpace(s) != "" {
			paragraphs = append(paragraphs, s)
		}
	}

	return &Extraction{Content: strings.Join(paragraphs, "\n\n")}, nil
}
