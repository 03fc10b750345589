package helpers

import (
	"fmt"
	"sort"
	"strings"
)

// Row is one z:row element. Keys are static names without the ows_ prefix.
type Row map[string]string

// FieldMeta describes one Field element of a list schema fixture.
type FieldMeta struct {
	Name        string
	DisplayName string
	Description string
	Type        string
	Required    bool
	Choices     []string
}

// Version is one entry of a GetVersionCollection fixture.
type Version struct {
	Value    string
	Editor   string
	Modified string
}

const envelopeOpen = `<?xml version="1.0" encoding="utf-8"?>` +
	`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" ` +
	`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema"><soap:Body>`

const envelopeClose = `</soap:Body></soap:Envelope>`

// ListItemsResponse builds a GetListItems response.
func ListItemsResponse(rows ...Row) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetListItemsResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><GetListItemsResult>`)
	writeData(&b, rows)
	b.WriteString(`</GetListItemsResult></GetListItemsResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// ChangesResponse builds a GetListItemChangesSinceToken response carrying a new
// token, deletions and changed rows. fields adds list metadata when given.
func ChangesResponse(token string, deleted []int, fields []FieldMeta, rows ...Row) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetListItemChangesSinceTokenResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><GetListItemChangesSinceTokenResult>`)
	b.WriteString(`<listitems xmlns:s="uuid:BDC6E3F0-6DA3-11d1-A2A3-00AA00C14882" xmlns:dt="uuid:C2F41010-65B3-11d1-A29F-00AA00C14882" `)
	b.WriteString(`xmlns:rs="urn:schemas-microsoft-com:rowset" xmlns:z="#RowsetSchema">`)
	fmt.Fprintf(&b, `<Changes LastChangeToken="%s">`, escape(token))
	if len(fields) > 0 {
		writeList(&b, "Fixture", fields)
	}
	for _, id := range deleted {
		fmt.Fprintf(&b, `<Id ChangeType="Delete" UniqueId="{00000000-0000-0000-0000-%012d}">%d</Id>`, id, id)
	}
	b.WriteString(`</Changes>`)
	writeRows(&b, rows)
	b.WriteString(`</listitems></GetListItemChangesSinceTokenResult></GetListItemChangesSinceTokenResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// UpdateResponse builds a successful UpdateListItems response returning rows.
func UpdateResponse(rows ...Row) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<UpdateListItemsResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><UpdateListItemsResult><Results>`)
	b.WriteString(`<Result ID="1,Cmd"><ErrorCode>0x00000000</ErrorCode>`)
	for _, row := range rows {
		b.WriteString(`<z:row xmlns:z="#RowsetSchema"`)
		writeAttrs(&b, row)
		b.WriteString(`/>`)
	}
	b.WriteString(`</Result></Results></UpdateListItemsResult></UpdateListItemsResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// ErrorResultResponse builds an UpdateListItems response with a failed result.
func ErrorResultResponse(code, text string) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<UpdateListItemsResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><UpdateListItemsResult><Results>`)
	fmt.Fprintf(&b, `<Result ID="1,Update"><ErrorCode>%s</ErrorCode><ErrorText>%s</ErrorText></Result>`, escape(code), escape(text))
	b.WriteString(`</Results></UpdateListItemsResult></UpdateListItemsResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// FaultResponse builds a SOAP fault.
func FaultResponse(message string) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<soap:Fault><faultcode>soap:Server</faultcode>`)
	b.WriteString(`<faultstring>Exception of type 'Microsoft.SharePoint.SoapServer.SoapServerException' was thrown.</faultstring>`)
	fmt.Fprintf(&b, `<detail><errorstring xmlns="http://schemas.microsoft.com/sharepoint/soap/">%s</errorstring>`, escape(message))
	b.WriteString(`<errorcode xmlns="http://schemas.microsoft.com/sharepoint/soap/">0x82000006</errorcode></detail></soap:Fault>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// ListResponse builds a GetList response.
func ListResponse(title string, fields ...FieldMeta) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetListResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><GetListResult>`)
	writeList(&b, title, fields)
	b.WriteString(`</GetListResult></GetListResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// VersionsResponse builds a GetVersionCollection response. Versions are given
// newest first, the way the server returns them.
func VersionsResponse(field string, versions ...Version) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetVersionCollectionResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><GetVersionCollectionResult><Versions>`)
	for _, v := range versions {
		fmt.Fprintf(&b, `<Version %s="%s" Modified="%s" Editor="%s"/>`,
			field, escape(v.Value), escape(v.Modified), escape(v.Editor))
	}
	b.WriteString(`</Versions></GetVersionCollectionResult></GetVersionCollectionResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// ListCollectionResponse builds a GetListCollection response.
func ListCollectionResponse(lists ...map[string]string) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetListCollectionResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/"><GetListCollectionResult><Lists>`)
	for _, l := range lists {
		b.WriteString(`<List`)
		writeRawAttrs(&b, l)
		b.WriteString(`/>`)
	}
	b.WriteString(`</Lists></GetListCollectionResult></GetListCollectionResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

func writeData(b *strings.Builder, rows []Row) {
	b.WriteString(`<listitems xmlns:s="uuid:BDC6E3F0-6DA3-11d1-A2A3-00AA00C14882" xmlns:rs="urn:schemas-microsoft-com:rowset" xmlns:z="#RowsetSchema">`)
	writeRows(b, rows)
	b.WriteString(`</listitems>`)
}

func writeRows(b *strings.Builder, rows []Row) {
	fmt.Fprintf(b, `<rs:data ItemCount="%d">`, len(rows))
	for _, row := range rows {
		b.WriteString(`<z:row`)
		writeAttrs(b, row)
		b.WriteString(`/>`)
	}
	b.WriteString(`</rs:data>`)
}

func writeList(b *strings.Builder, title string, fields []FieldMeta) {
	fmt.Fprintf(b, `<List ID="{6F9E2C40-8D4B-4E2C-9F3D-1A2B3C4D5E6F}" Title="%s" Description="" ServerTemplate="100" ItemCount="0"><Fields>`, escape(title))
	for _, f := range fields {
		fmt.Fprintf(b, `<Field Name="%s" StaticName="%s" DisplayName="%s" Description="%s" Type="%s"`,
			escape(f.Name), escape(f.Name), escape(f.DisplayName), escape(f.Description), escape(f.Type))
		if f.Required {
			b.WriteString(` Required="TRUE"`)
		}
		b.WriteString(`>`)
		if len(f.Choices) > 0 {
			b.WriteString(`<CHOICES>`)
			for _, c := range f.Choices {
				fmt.Fprintf(b, `<CHOICE>%s</CHOICE>`, escape(c))
			}
			b.WriteString(`</CHOICES>`)
		}
		b.WriteString(`</Field>`)
	}
	b.WriteString(`</Fields></List>`)
}

func writeAttrs(b *strings.Builder, row Row) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` ows_%s="%s"`, k, escape(row[k]))
	}
}

func writeRawAttrs(b *strings.Builder, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` %s="%s"`, k, escape(attrs[k]))
	}
}

func escape(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// WorkflowTemplate is one entry of a GetTemplatesForItem fixture.
type WorkflowTemplate struct {
	Name       string
	TemplateID string
	BaseID     string
}

// WorkflowTemplatesResponse builds a GetTemplatesForItem response.
func WorkflowTemplatesResponse(templates ...WorkflowTemplate) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetTemplatesForItemResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/workflow/"><GetTemplatesForItemResult>`)
	b.WriteString(`<TemplateData><WorkflowTemplates>`)
	for _, t := range templates {
		fmt.Fprintf(&b, `<WorkflowTemplate Name="%s" Description="" InstantiationUrl="https://contoso.sharepoint.com/_layouts/IniWrkflIP.aspx">`, escape(t.Name))
		fmt.Fprintf(&b, `<WorkflowTemplateIdSet TemplateId="%s" BaseId="%s"/>`, escape(t.TemplateID), escape(t.BaseID))
		b.WriteString(`<AssociationData><string>data</string></AssociationData></WorkflowTemplate>`)
	}
	b.WriteString(`</WorkflowTemplates></TemplateData></GetTemplatesForItemResult></GetTemplatesForItemResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// UserProfileResponse builds a GetUserProfileByName response. Multi-valued
// properties are separated by ";".
func UserProfileResponse(props map[string]string) []byte {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetUserProfileByNameResponse xmlns="http://microsoft.com/webservices/SharePointPortalServer/UserProfileService"><GetUserProfileByNameResult>`)
	for _, k := range keys {
		fmt.Fprintf(&b, `<PropertyData><IsPrivacyChanged>false</IsPrivacyChanged><Name>%s</Name><Values>`, escape(k))
		for _, v := range strings.Split(props[k], ";") {
			fmt.Fprintf(&b, `<ValueData><Value xsi:type="xsd:string">%s</Value></ValueData>`, escape(v))
		}
		b.WriteString(`</Values></PropertyData>`)
	}
	b.WriteString(`</GetUserProfileByNameResult></GetUserProfileByNameResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}

// GroupsResponse builds a GetGroupCollectionFromUser response.
func GroupsResponse(groups ...map[string]string) []byte {
	var b strings.Builder
	b.WriteString(envelopeOpen)
	b.WriteString(`<GetGroupCollectionFromUserResponse xmlns="http://schemas.microsoft.com/sharepoint/soap/directory/"><GetGroupCollectionFromUserResult>`)
	b.WriteString(`<GetGroupCollectionFromUser><Groups>`)
	for _, g := range groups {
		b.WriteString(`<Group`)
		writeRawAttrs(&b, g)
		b.WriteString(`/>`)
	}
	b.WriteString(`</Groups></GetGroupCollectionFromUser></GetGroupCollectionFromUserResult></GetGroupCollectionFromUserResponse>`)
	b.WriteString(envelopeClose)
	return []byte(b.String())
}
