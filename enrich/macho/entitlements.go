package macho

import (
	"bytes"
	"errors"
	"fmt"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/r-che/cadfael/types"
)

var ErrUnexpectedTag = errors.New("unexpected property list tag")

// Property list elements
const (
	tagPlist	=	"plist"
	tagDict		=	"dict"
	tagKey		=	"key"
	tagArray	=	"array"
	tagString	=	"string"
	tagInteger	=	"integer"
	tagTrue		=	"true"
	tagFalse	=	"false"
)

// ParseEntitlements parses the XML property list with the entitlements dict. The order of
// entries is kept. Values are bool, string, int64, []string or []types.EntitlementEntry
func ParseEntitlements(data []byte) ([]types.EntitlementEntry, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	// Find the plist element
	for {
		tok, err := nextElement(dec)
		if err != nil {
			return nil, fmt.Errorf("(MachO:ParseEntitlements) no %q element: %w", tagPlist, err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == tagPlist {
			break
		}
	}

	tok, err := nextElement(dec)
	if err != nil {
		return nil, fmt.Errorf("(MachO:ParseEntitlements) cannot read %q content: %w", tagPlist, err)
	}
	se, ok := tok.(xml.StartElement)
	if !ok || se.Name.Local != tagDict {
		return nil, fmt.Errorf("(MachO:ParseEntitlements) %w: %s instead of %q", ErrUnexpectedTag, tokName(tok), tagDict)
	}

	return parseDict(dec)
}

// parseDict parses the dict content, the start element is already consumed
func parseDict(dec *xml.Decoder) ([]types.EntitlementEntry, error) {
	entries := []types.EntitlementEntry{}

	for {
		tok, err := nextElement(dec)
		if err != nil {
			return nil, fmt.Errorf("(MachO:parseDict) %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			// End of the dict
			return entries, nil
		}
		if se.Name.Local != tagKey {
			return nil, fmt.Errorf("(MachO:parseDict) %w: %s instead of %q", ErrUnexpectedTag, tokName(tok), tagKey)
		}

		name, err := readText(dec)
		if err != nil {
			return nil, err
		}

		if tok, err = nextElement(dec); err != nil {
			return nil, fmt.Errorf("(MachO:parseDict) cannot read value of %q: %w", name, err)
		}
		if se, ok = tok.(xml.StartElement); !ok {
			return nil, fmt.Errorf("(MachO:parseDict) key %q without value", name)
		}

		value, err := parseValue(dec, se)
		if err != nil {
			return nil, fmt.Errorf("(MachO:parseDict) value of %q: %w", name, err)
		}

		entries = append(entries, types.EntitlementEntry{Name: name, Value: value})
	}
}

func parseValue(dec *xml.Decoder, se xml.StartElement) (any, error) {
	switch se.Name.Local {
		case tagTrue, tagFalse:
			if _, err := readText(dec); err != nil {
				return nil, err
			}
			return se.Name.Local == tagTrue, nil

		case tagString:
			return readText(dec)

		case tagInteger:
			text, err := readText(dec)
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseInt(strings.TrimSpace(text), 0, 64)
			if err != nil {
				return nil, fmt.Errorf("(MachO:parseValue) invalid integer %q: %w", text, err)
			}
			return v, nil

		case tagArray:
			items := []string{}
			for {
				tok, err := nextElement(dec)
				if err != nil {
					return nil, fmt.Errorf("(MachO:parseValue) %w", err)
				}
				item, ok := tok.(xml.StartElement)
				if !ok {
					// End of the array
					return items, nil
				}
				// Only simple elements are supported
				if item.Name.Local == tagArray || item.Name.Local == tagDict {
					return nil, fmt.Errorf("(MachO:parseValue) %w: %s inside of %q", ErrUnexpectedTag, tokName(item), tagArray)
				}
				text, err := readText(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, text)
			}

		case tagDict:
			return parseDict(dec)

		default:
			return nil, fmt.Errorf("(MachO:parseValue) %w: %s", ErrUnexpectedTag, tokName(se))
	}
}

// nextElement returns the next start or end element skipping all other tokens
func nextElement(dec *xml.Decoder) (xml.Token, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch tok.(type) {
			case xml.StartElement, xml.EndElement:
				return tok, nil
		}
	}
}

// readText returns the character data of the current element and consumes its end
func readText(dec *xml.Decoder) (string, error) {
	text := strings.Builder{}

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("(MachO:readText) %w", err)
		}

		switch t := tok.(type) {
			case xml.CharData:
				text.Write(t)
			case xml.EndElement:
				return text.String(), nil
			case xml.StartElement:
				return "", fmt.Errorf("(MachO:readText) %w: %s inside of a simple element", ErrUnexpectedTag, tokName(t))
		}
	}
}

func tokName(tok xml.Token) string {
	switch t := tok.(type) {
		case xml.StartElement:
			return "<" + t.Name.Local + ">"
		case xml.EndElement:
			return "</" + t.Name.Local + ">"
		default:
			return fmt.Sprintf("%T", tok)
	}
}
