package listmodel

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// CAMLEq builds a <Query> filtering on a single equality.
func CAMLEq(fieldName, valueType, value string) string {
	return "<Query><Where><Eq><FieldRef Name=\"" + xmlEscape(fieldName) + "\"/><Value Type=\"" +
		xmlEscape(valueType) + "\">" + xmlEscape(value) + "</Value></Eq></Where></Query>"
}

// CAMLByID filters on the item id.
func CAMLByID(id int) string {
	return CAMLEq("ID", "Counter", strconv.Itoa(id))
}

// CAMLQueryOptions builds the <QueryOptions> element. Lookup values are expanded
// to include user sub-records and the all-folders scope is requested.
func CAMLQueryOptions(includeMandatory bool) string {
	var b strings.Builder
	b.WriteString("<QueryOptions>")
	b.WriteString("<IncludeMandatoryColumns>")
	b.WriteString(strings.ToUpper(strconv.FormatBool(includeMandatory)))
	b.WriteString("</IncludeMandatoryColumns>")
	b.WriteString("<DateInUtc>TRUE</DateInUtc>")
	b.WriteString("<ExpandUserField>TRUE</ExpandUserField>")
	b.WriteString(`<ViewAttributes Scope="Recursive"/>`)
	b.WriteString("</QueryOptions>")
	return b.String()
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
