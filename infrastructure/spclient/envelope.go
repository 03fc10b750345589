package spclient

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strconv"

	"spmodel/domain/listmodel"
)

type service struct {
	path      string
	namespace string
}

var (
	listsService = service{
		path:      "_vti_bin/Lists.asmx",
		namespace: "http://schemas.microsoft.com/sharepoint/soap/",
	}
	workflowService = service{
		path:      "_vti_bin/Workflow.asmx",
		namespace: "http://schemas.microsoft.com/sharepoint/soap/workflow/",
	}
	userGroupService = service{
		path:      "_vti_bin/UserGroup.asmx",
		namespace: "http://schemas.microsoft.com/sharepoint/soap/directory/",
	}
	userProfileService = service{
		path:      "_vti_bin/UserProfileService.asmx",
		namespace: "http://microsoft.com/webservices/SharePointPortalServer/UserProfileService",
	}
)

// param is one child element of the operation element. raw values are XML
// fragments and are written unescaped.
type param struct {
	name  string
	value string
	raw   bool
}

func text(name, value string) param { return param{name: name, value: value} }

func fragment(name, value string) param { return param{name: name, value: value, raw: true} }

func soapAction(svc service, operation string) string {
	return svc.namespace + operation
}

func envelope(svc service, operation string, params []param) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" `)
	b.WriteString(`xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">`)
	b.WriteString(`<soap:Body><`)
	b.WriteString(operation)
	b.WriteString(` xmlns="`)
	b.WriteString(svc.namespace)
	b.WriteString(`">`)
	for _, p := range params {
		if p.value == "" {
			continue
		}
		b.WriteString("<" + p.name + ">")
		if p.raw {
			b.WriteString(p.value)
		} else {
			escapeTo(&b, p.value)
		}
		b.WriteString("</" + p.name + ">")
	}
	b.WriteString(`</`)
	b.WriteString(operation)
	b.WriteString(`></soap:Body></soap:Envelope>`)
	return b.Bytes()
}

func escapeTo(b *bytes.Buffer, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

func escapeString(s string) string {
	var b bytes.Buffer
	escapeTo(&b, s)
	return b.String()
}

// listsParams maps a model request onto the Lists.asmx parameters of its operation.
func listsParams(req *listmodel.Request) []param {
	switch req.Operation {
	case listmodel.OpUpdateListItems:
		return []param{
			text("listName", req.ListName),
			fragment("updates", batchXML(req)),
		}
	case listmodel.OpGetListItemChangesSinceToken:
		return []param{
			text("listName", req.ListName),
			fragment("query", req.CAMLQuery),
			fragment("viewFields", req.CAMLViewFields),
			text("rowLimit", rowLimit(req.CAMLRowLimit)),
			fragment("queryOptions", req.CAMLQueryOptions),
			text("changeToken", req.ChangeToken),
		}
	case listmodel.OpGetList:
		return []param{text("listName", req.ListName)}
	default:
		return []param{
			text("listName", req.ListName),
			fragment("query", req.CAMLQuery),
			fragment("viewFields", req.CAMLViewFields),
			text("rowLimit", rowLimit(req.CAMLRowLimit)),
			fragment("queryOptions", req.CAMLQueryOptions),
		}
	}
}

func rowLimit(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// batchXML builds the single-method Batch element of an UpdateListItems call.
func batchXML(req *listmodel.Request) string {
	var b bytes.Buffer
	b.WriteString(`<Batch OnError="Continue" ListVersion="1"><Method ID="1" Cmd="`)
	b.WriteString(string(req.BatchCmd))
	b.WriteString(`">`)

	id := "New"
	if req.BatchCmd != listmodel.BatchNew {
		id = strconv.Itoa(req.ItemID)
	}
	writeBatchField(&b, "ID", id)
	for _, pair := range req.ValuePairs {
		if pair.Name == "ID" {
			continue
		}
		writeBatchField(&b, pair.Name, pair.Value)
	}
	b.WriteString(`</Method></Batch>`)
	return b.String()
}

func writeBatchField(b *bytes.Buffer, name, value string) {
	b.WriteString(`<Field Name="`)
	escapeTo(b, name)
	b.WriteString(`">`)
	escapeTo(b, value)
	b.WriteString(`</Field>`)
}

// workflowData renders workflow parameters as a <Data> fragment with sorted keys.
func workflowData(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteString("<Data>")
	for _, k := range keys {
		b.WriteString("<" + k + ">")
		escapeTo(&b, params[k])
		b.WriteString("</" + k + ">")
	}
	b.WriteString("</Data>")
	return b.String()
}
