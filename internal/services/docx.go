package services

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/klauspost/compress/zip"
)

const (
	docxBodyPart  = "word/document.xml"
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// readDOCXText returns the text of the top-level body paragraphs joined by
// newlines. Paragraphs nested in tables, text boxes, headers and footers are
// not included.
func readDOCXText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var part *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("docx has no %s", docxBodyPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	doc, err := xmlquery.Parse(rc)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
	}

	body := xmlquery.FindOne(doc, "//*[local-name()='body']")
	if body == nil {
		return "", fmt.Errorf("docx has no body")
	}

	var paragraphs []string
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if isWordElement(child, "p") {
			paragraphs = append(paragraphs, paragraphText(child))
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func paragraphText(p *xmlquery.Node) string {
	var builder strings.Builder
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			// Text boxes and alternate renderings carry their own paragraphs.
			if child.Data == "AlternateContent" {
				continue
			}
			if !isWordElement(child, child.Data) {
				walk(child)
				continue
			}
			switch child.Data {
			case "drawing", "pict", "pPr", "rPr":
			case "t":
				builder.WriteString(child.InnerText())
			case "tab":
				builder.WriteString("\t")
			case "br", "cr":
				builder.WriteString("\n")
			default:
				walk(child)
			}
		}
	}
	walk(p)
	return builder.String()
}

func isWordElement(n *xmlquery.Node, local string) bool {
	if n.Type != xmlquery.ElementNode || n.Data != local {
		return false
	}
	return n.NamespaceURI == wordNamespace || n.Prefix == "w"
}
