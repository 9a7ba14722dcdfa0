// Package uitree extracts text elements from Android UI hierarchy XML.
package uitree

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/screengrid-dev/screengrid/pkg/core"
)

// Extract parses Android UI hierarchy XML into text elements.
// Supports both formats:
// - UIAutomator dump: uses class name as element tag (e.g., <android.widget.FrameLayout>)
// - Appium format: uses <node> elements
//
// Each of a node's text, content-desc and hint attributes yields its own
// element, since a query may target any of them. Elements are returned in
// document order with Confidence 100 and Source UI.
func Extract(xmlData string) ([]core.TextElement, error) {
	decoder := xml.NewDecoder(strings.NewReader(xmlData))

	var elements []core.TextElement
	foundHierarchy := false

	var parseElement func() (bool, error)
	parseElement = func() (bool, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return false, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				// Skip the hierarchy element
				if t.Name.Local == "hierarchy" {
					foundHierarchy = true
					continue
				}

				var text, contentDesc, hint string
				var bx, by, bw, bh int

				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "text":
						text = attr.Value
					case "content-desc":
						contentDesc = attr.Value
					case "hint":
						hint = attr.Value
					case "bounds":
						bx, by, bw, bh = parseBounds(attr.Value)
					}
				}

				for _, value := range []string{text, contentDesc, hint} {
					if strings.TrimSpace(value) == "" {
						continue
					}
					elements = append(elements, core.TextElement{
						Text:       value,
						X:          bx,
						Y:          by,
						Width:      bw,
						Height:     bh,
						Confidence: 100,
						Source:     core.SourceUI,
					})
				}

				// Parse children recursively
				for {
					more, err := parseElement()
					if err != nil || !more {
						break
					}
				}

				return true, nil

			case xml.EndElement:
				return false, nil // End of current element
			}
		}
	}

	var parseErr error
	for {
		more, err := parseElement()
		if err != nil {
			// io.EOF is expected at end of document
			if err.Error() != "EOF" {
				parseErr = err
			}
			break
		}
		if !more {
			break
		}
	}

	if parseErr != nil && len(elements) == 0 {
		return nil, parseErr
	}

	if !foundHierarchy {
		return nil, fmt.Errorf("invalid UI hierarchy: no hierarchy element found")
	}

	return elements, nil
}

// parseBounds parses Android bounds string "[x1,y1][x2,y2]".
func parseBounds(s string) (x, y, width, height int) {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0
	}

	x1, _ := strconv.Atoi(parts[0])
	y1, _ := strconv.Atoi(parts[1])
	x2, _ := strconv.Atoi(parts[2])
	y2, _ := strconv.Atoi(parts[3])

	return x1, y1, x2 - x1, y2 - y1
}
