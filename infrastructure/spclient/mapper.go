package spclient

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"spmodel/domain/listmodel"
	"spmodel/domain/sharepoint"
)

// joinURL safely joins a base URL with a relative path
func joinURL(base, rel string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if strings.HasPrefix(rel, "/") {
		u.Path = rel
		return u.String()
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.Path += rel
	return u.String()
}

// firstNonEmpty returns the first non-empty string from the provided values
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// elementAttrs returns the attributes of every element with the given local name.
func elementAttrs(raw []byte, local string) ([]listmodel.Attrs, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var out []listmodel.Attrs
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == local {
			out = append(out, attrsOf(start))
		}
	}
}

func attrsOf(start xml.StartElement) listmodel.Attrs {
	a := make(listmodel.Attrs, len(start.Attr))
	for _, attr := range start.Attr {
		a[attr.Name.Local] = attr.Value
	}
	return a
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func isTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func mapListSummary(a listmodel.Attrs) sharepoint.ListSummary {
	return sharepoint.ListSummary{
		ID:           a["ID"],
		Title:        a["Title"],
		Description:  a["Description"],
		BaseTemplate: atoi(a["ServerTemplate"]),
		ItemCount:    atoi(a["ItemCount"]),
		Hidden:       isTrue(a["Hidden"]),
	}
}

func mapGroup(a listmodel.Attrs) sharepoint.Group {
	return sharepoint.Group{
		ID:          atoi(a["ID"]),
		Name:        a["Name"],
		Description: a["Description"],
		OwnerID:     atoi(a["OwnerID"]),
		OwnerIsUser: isTrue(a["OwnerIsUser"]),
	}
}

type profileEnvelope struct {
	Properties []profileProperty `xml:"Body>GetUserProfileByNameResponse>GetUserProfileByNameResult>PropertyData"`
}

type profileProperty struct {
	Name   string   `xml:"Name"`
	Values []string `xml:"Values>ValueData>Value"`
}

func mapUserProfile(raw []byte) (*sharepoint.UserProfile, error) {
	var env profileEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}

	props := make(map[string]string, len(env.Properties))
	for _, p := range env.Properties {
		props[p.Name] = strings.Join(p.Values, ";")
	}
	return &sharepoint.UserProfile{
		AccountName: props["AccountName"],
		UserID:      atoi(props["UserProfile_ID"]),
		DisplayName: firstNonEmpty(props["PreferredName"], props["DisplayName"]),
		Email:       props["WorkEmail"],
		Title:       props["Title"],
		Department:  props["Department"],
		SIPAddress:  props["SPS-SipAddress"],
		Properties:  props,
	}, nil
}

// mapWorkflowTemplates reads WorkflowTemplate elements and their id sets.
func mapWorkflowTemplates(raw []byte) ([]sharepoint.WorkflowTemplate, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		out     []sharepoint.WorkflowTemplate
		current *sharepoint.WorkflowTemplate
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode workflow templates: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "WorkflowTemplate":
				a := attrsOf(t)
				out = append(out, sharepoint.WorkflowTemplate{
					Name:             a["Name"],
					Description:      a["Description"],
					InstantiationURL: a["InstantiationUrl"],
				})
				current = &out[len(out)-1]
			case "WorkflowTemplateIdSet":
				if current == nil {
					continue
				}
				a := attrsOf(t)
				current.TemplateID = a["TemplateId"]
				current.BaseID = a["BaseId"]
			}
		case xml.EndElement:
			if t.Name.Local == "WorkflowTemplate" {
				current = nil
			}
		}
	}
}
