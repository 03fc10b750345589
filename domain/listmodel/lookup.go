package listmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire delimiters used by SharePoint list services.
const (
	// ListDelimiter separates values of multi-value fields and lookup id/value pairs.
	ListDelimiter = ";#"
	// SubDelimiter separates lookup id/value in the short form and user sub-fields.
	SubDelimiter = ",#"
)

// Lookup is a reference to an item in another list.
type Lookup struct {
	LookupID    int    `json:"lookupId"`
	LookupValue string `json:"lookupValue"`
}

// User is a Lookup into the site user list, optionally carrying the expanded
// user sub-record.
type User struct {
	LookupID    int    `json:"lookupId"`
	LookupValue string `json:"lookupValue"`
	LoginName   string `json:"loginName,omitempty"`
	Email       string `json:"email,omitempty"`
	SIPAddress  string `json:"sipAddress,omitempty"`
	Title       string `json:"title,omitempty"`
}

// ParseLookup parses "id;#value" or the short "id,#value" form.
func ParseLookup(s string) (*Lookup, error) {
	id, value, err := splitLookup(s)
	if err != nil {
		return nil, err
	}
	return &Lookup{LookupID: id, LookupValue: value}, nil
}

// ParseUser parses a user lookup. When the value holds the expanded sub-record
// (value,#loginName,#email,#sipAddress,#title) each segment is unescaped.
func ParseUser(s string) (*User, error) {
	id, value, err := splitLookup(s)
	if err != nil {
		return nil, err
	}

	u := &User{LookupID: id}
	parts := strings.Split(value, SubDelimiter)
	if len(parts) == 1 {
		u.LookupValue = value
		return u, nil
	}

	for i := range parts {
		parts[i] = unescapeCommas(parts[i])
	}
	u.LookupValue = parts[0]
	if len(parts) > 1 {
		u.LoginName = parts[1]
	}
	if len(parts) > 2 {
		u.Email = parts[2]
	}
	if len(parts) > 3 {
		u.SIPAddress = parts[3]
	}
	if len(parts) > 4 {
		u.Title = parts[4]
	}
	return u, nil
}

// ParseLookupMulti parses a multi-value lookup in either the paired
// "1;#A;#2;#B" form or the short "1,#A;#2,#B" form.
func ParseLookupMulti(s string) ([]*Lookup, error) {
	segments, err := lookupSegments(s)
	if err != nil {
		return nil, err
	}
	out := make([]*Lookup, 0, len(segments))
	for _, seg := range segments {
		l, err := ParseLookup(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ParseUserMulti parses a multi-value user field.
func ParseUserMulti(s string) ([]*User, error) {
	segments, err := lookupSegments(s)
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(segments))
	for _, seg := range segments {
		u, err := ParseUser(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// ParseMultiChoice splits ";#a;#b;#" into its non-empty choices.
func ParseMultiChoice(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ListDelimiter) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// String renders the lookup in wire form.
func (l *Lookup) String() string {
	return fmt.Sprintf("%d%s%s", l.LookupID, ListDelimiter, l.LookupValue)
}

// String renders the user in wire form. The sub-record is not sent back.
func (u *User) String() string {
	return fmt.Sprintf("%d%s%s", u.LookupID, ListDelimiter, u.LookupValue)
}

// AsLookup drops the user sub-record.
func (u *User) AsLookup() *Lookup {
	return &Lookup{LookupID: u.LookupID, LookupValue: u.LookupValue}
}

// lookupSegments returns one "id;#value" or "id,#value" string per referenced item.
func lookupSegments(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ListDelimiter)
	if isShortForm(parts[0]) {
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}

	out := make([]string, 0, (len(parts)+1)/2)
	for i := 0; i < len(parts); i += 2 {
		if parts[i] == "" {
			continue
		}
		value := ""
		if i+1 < len(parts) {
			value = parts[i+1]
		}
		out = append(out, parts[i]+ListDelimiter+value)
	}
	return out, nil
}

// isShortForm reports whether a segment is "id,#value".
func isShortForm(seg string) bool {
	idx := strings.Index(seg, SubDelimiter)
	if idx <= 0 {
		return false
	}
	_, err := strconv.Atoi(seg[:idx])
	return err == nil
}

func splitLookup(s string) (int, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("empty lookup value")
	}

	idPart, value := s, ""
	if idx := strings.Index(s, ListDelimiter); idx >= 0 {
		idPart, value = s[:idx], s[idx+len(ListDelimiter):]
	} else if idx := strings.Index(s, SubDelimiter); idx >= 0 {
		idPart, value = s[:idx], s[idx+len(SubDelimiter):]
	}

	id, err := strconv.Atoi(idPart)
	if err != nil {
		return 0, "", fmt.Errorf("lookup id %q: %w", idPart, err)
	}
	return id, value, nil
}

func unescapeCommas(s string) string {
	return strings.ReplaceAll(s, ",,", ",")
}
