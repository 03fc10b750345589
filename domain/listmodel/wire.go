package listmodel

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const successErrorCode = "0x00000000"

// Attrs holds the attributes of one wire element, keyed by local name.
type Attrs map[string]string

// ListMetadata is the list schema reported by GetList or by the first
// GetListItemChangesSinceToken response.
type ListMetadata struct {
	ID           string
	Title        string
	Description  string
	BaseTemplate string
	ItemCount    int
	Fields       []FieldMetadata
}

// BatchResult is the outcome of one UpdateListItems method.
type BatchResult struct {
	ID        string
	ErrorCode string
	ErrorText string
}

// Response is a parsed Lists service response. Rows, deletions, metadata and
// errors may all appear in the same document.
type Response struct {
	Operation   Operation
	Rows        []Attrs
	ChangeToken string
	DeletedIDs  []int
	List        *ListMetadata
	Versions    []Attrs
	Results     []BatchResult
	ItemCount   int
	NextPage    string
}

type wireField struct {
	Name        string   `xml:"Name,attr"`
	StaticName  string   `xml:"StaticName,attr"`
	DisplayName string   `xml:"DisplayName,attr"`
	Description string   `xml:"Description,attr"`
	Type        string   `xml:"Type,attr"`
	Required    string   `xml:"Required,attr"`
	ReadOnly    string   `xml:"ReadOnly,attr"`
	Choices     []string `xml:"CHOICES>CHOICE"`
}

type wireChangeID struct {
	ChangeType string `xml:"ChangeType,attr"`
	Value      string `xml:",chardata"`
}

// ParseResponse walks a SOAP response and collects everything the decoder
// needs. SOAP faults and failed batch results are returned as *ServiceError.
func ParseResponse(op Operation, raw []byte) (*Response, error) {
	resp := &Response{Operation: op}
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var (
		inList        bool
		inChanges     bool
		faultString   string
		faultDetail   string
		faultCode     string
		currentResult = -1
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s response: %w", op, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				resp.Rows = append(resp.Rows, attrsOf(t))
			case "Version":
				resp.Versions = append(resp.Versions, attrsOf(t))
			case "Changes":
				inChanges = true
				if token := attrValue(t, "LastChangeToken"); token != "" {
					resp.ChangeToken = token
				}
			case "Id":
				if !inChanges {
					continue
				}
				var change wireChangeID
				if err := dec.DecodeElement(&change, &t); err != nil {
					return nil, fmt.Errorf("parse %s change: %w", op, err)
				}
				if !strings.EqualFold(change.ChangeType, "Delete") {
					continue
				}
				id, err := strconv.Atoi(strings.TrimSpace(change.Value))
				if err != nil {
					return nil, fmt.Errorf("parse %s deleted id %q: %w", op, change.Value, err)
				}
				resp.DeletedIDs = append(resp.DeletedIDs, id)
			case "List":
				inList = true
				if resp.List == nil {
					resp.List = &ListMetadata{}
				}
				a := attrsOf(t)
				resp.List.ID = firstNonEmpty(a["ID"], resp.List.ID)
				resp.List.Title = firstNonEmpty(a["Title"], resp.List.Title)
				resp.List.Description = firstNonEmpty(a["Description"], resp.List.Description)
				resp.List.BaseTemplate = firstNonEmpty(a["ServerTemplate"], resp.List.BaseTemplate)
				if n, err := strconv.Atoi(a["ItemCount"]); err == nil {
					resp.List.ItemCount = n
				}
			case "Field":
				if !inList {
					continue
				}
				var f wireField
				if err := dec.DecodeElement(&f, &t); err != nil {
					return nil, fmt.Errorf("parse %s field metadata: %w", op, err)
				}
				resp.List.Fields = append(resp.List.Fields, FieldMetadata{
					StaticName:  firstNonEmpty(f.StaticName, f.Name),
					DisplayName: f.DisplayName,
					Description: f.Description,
					Type:        f.Type,
					Required:    strings.EqualFold(f.Required, "TRUE"),
					ReadOnly:    strings.EqualFold(f.ReadOnly, "TRUE"),
					Choices:     f.Choices,
				})
			case "data":
				a := attrsOf(t)
				if n, err := strconv.Atoi(a["ItemCount"]); err == nil {
					resp.ItemCount = n
				}
				resp.NextPage = a["ListItemCollectionPositionNext"]
			case "Result":
				resp.Results = append(resp.Results, BatchResult{ID: attrValue(t, "ID")})
				currentResult = len(resp.Results) - 1
			case "ErrorCode", "ErrorText":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("parse %s result: %w", op, err)
				}
				if currentResult < 0 {
					continue
				}
				if t.Name.Local == "ErrorCode" {
					resp.Results[currentResult].ErrorCode = strings.TrimSpace(text)
				} else {
					resp.Results[currentResult].ErrorText = strings.TrimSpace(text)
				}
			case "faultcode", "faultstring", "errorstring", "errorcode":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("parse %s fault: %w", op, err)
				}
				switch t.Name.Local {
				case "faultstring":
					faultString = strings.TrimSpace(text)
				case "errorstring":
					faultDetail = strings.TrimSpace(text)
				default:
					if faultCode == "" {
						faultCode = strings.TrimSpace(text)
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "List":
				inList = false
			case "Changes":
				inChanges = false
			case "Result":
				currentResult = -1
			}
		}
	}

	if faultString != "" || faultDetail != "" {
		return nil, &ServiceError{
			Operation: string(op),
			Code:      faultCode,
			Message:   firstNonEmpty(faultDetail, faultString),
		}
	}
	for _, r := range resp.Results {
		if r.ErrorCode != "" && r.ErrorCode != successErrorCode {
			return nil, &ServiceError{Operation: string(op), Code: r.ErrorCode, Message: r.ErrorText}
		}
	}
	return resp, nil
}

func attrsOf(se xml.StartElement) Attrs {
	a := make(Attrs, len(se.Attr))
	for _, attr := range se.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		a[attr.Name.Local] = attr.Value
	}
	return a
}

func attrValue(se xml.StartElement, name string) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
