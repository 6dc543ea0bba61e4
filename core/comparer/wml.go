package comparer

import "github.com/FocuswithJustin/wmlcompare/core/xml"

var (
	nameDocument  = xml.W("document")
	nameBody      = xml.W("body")
	nameP         = xml.W("p")
	namePPr       = xml.W("pPr")
	nameR         = xml.W("r")
	nameRPr       = xml.W("rPr")
	nameT         = xml.W("t")
	nameDelText   = xml.W("delText")
	nameInstrText = xml.W("instrText")
	nameDelInstr  = xml.W("delInstrText")
	nameTbl       = xml.W("tbl")
	nameTblGrid   = xml.W("tblGrid")
	nameGridCol   = xml.W("gridCol")
	nameTr        = xml.W("tr")
	nameTrPr      = xml.W("trPr")
	nameTc        = xml.W("tc")
	nameTxbx      = xml.W("txbxContent")
	nameIns       = xml.W("ins")
	nameDel       = xml.W("del")
	nameMoveFrom  = xml.W("moveFrom")
	nameMoveTo    = xml.W("moveTo")
	nameRPrChange = xml.W("rPrChange")
	namePPrChange = xml.W("pPrChange")
	nameShd       = xml.W("shd")
	nameLang      = xml.W("lang")
	nameFootnote  = xml.W("footnote")
	nameEndnote   = xml.W("endnote")
	nameSectPr    = xml.W("sectPr")

	attrID        = xml.W("id")
	attrAuthor    = xml.W("author")
	attrDate      = xml.W("date")
	attrVal       = xml.W("val")
	attrType      = xml.W("type")
	attrColor     = xml.W("color")
	attrFill      = xml.W("fill")
	attrSpace     = xml.Name{Space: xml.XMLNamespace, Local: "space"}
	nameDocPr     = xml.Name{Space: xml.WPNamespace, Local: "docPr"}
	attrDocPrID   = xml.Name{Local: "id"}
	attrDocPrName = xml.Name{Local: "name"}
)

// Story roots the comparator accepts.
var storyRoots = map[xml.Name]bool{
	nameDocument:       true,
	xml.W("hdr"):       true,
	xml.W("ftr"):       true,
	xml.W("footnotes"): true,
	xml.W("endnotes"):  true,
}

// Elements that carry an existing tracked revision around content.
var revisionWrappers = map[xml.Name]Status{
	nameIns:      StatusInserted,
	nameMoveTo:   StatusInserted,
	nameDel:      StatusDeleted,
	nameMoveFrom: StatusDeleted,
}

// Position markers travel with the atom that follows them.
var markerElements = map[xml.Name]bool{
	xml.W("bookmarkStart"):     true,
	xml.W("bookmarkEnd"):       true,
	xml.W("commentRangeStart"): true,
	xml.W("commentRangeEnd"):   true,
}

// Elements that are dropped from the comparison and from the output.
var ignoredElements = map[xml.Name]bool{
	xml.W("proofErr"):                    true,
	xml.W("permStart"):                   true,
	xml.W("permEnd"):                     true,
	xml.W("lastRenderedPageBreak"):       true,
	xml.W("moveFromRangeStart"):          true,
	xml.W("moveFromRangeEnd"):            true,
	xml.W("moveToRangeStart"):            true,
	xml.W("moveToRangeEnd"):              true,
	xml.W("customXmlInsRangeStart"):      true,
	xml.W("customXmlInsRangeEnd"):        true,
	xml.W("customXmlDelRangeStart"):      true,
	xml.W("customXmlDelRangeEnd"):        true,
	xml.W("customXmlMoveFromRangeStart"): true,
	xml.W("customXmlMoveFromRangeEnd"):   true,
	xml.W("customXmlMoveToRangeStart"):   true,
	xml.W("customXmlMoveToRangeEnd"):     true,
}

// Containers that may appear at block level and hold paragraphs or tables.
var blockContainers = map[xml.Name]bool{
	nameBody:            true,
	nameTbl:             true,
	nameTr:              true,
	nameTc:              true,
	nameTxbx:            true,
	nameFootnote:        true,
	nameEndnote:         true,
	xml.W("sdt"):        true,
	xml.W("sdtContent"): true,
	xml.W("customXml"):  true,
	xml.W("footnotes"):  true,
	xml.W("endnotes"):   true,
	xml.W("hdr"):        true,
	xml.W("ftr"):        true,
	nameDocument:        true,
}

// Containers that may appear inside a paragraph and hold runs.
var inlineContainers = map[xml.Name]bool{
	xml.W("hyperlink"):  true,
	xml.W("smartTag"):   true,
	xml.W("sdt"):        true,
	xml.W("sdtContent"): true,
	xml.W("fldSimple"):  true,
	xml.W("customXml"):  true,
	xml.W("dir"):        true,
	xml.W("bdo"):        true,
}

// Run children that are single atoms; the value is the atom text used for words and
// revision reports.
var runAtoms = map[xml.Name]string{
	xml.W("br"):                    "\n",
	xml.W("cr"):                    "\n",
	xml.W("tab"):                   "\t",
	xml.W("ptab"):                  "\t",
	xml.W("sym"):                   "",
	xml.W("noBreakHyphen"):         "\u2011",
	xml.W("softHyphen"):            "\u00ad",
	xml.W("fldChar"):               "",
	xml.W("footnoteReference"):     "",
	xml.W("endnoteReference"):      "",
	xml.W("commentReference"):      "",
	xml.W("annotationRef"):         "",
	xml.W("footnoteRef"):           "",
	xml.W("endnoteRef"):            "",
	xml.W("separator"):             "",
	xml.W("continuationSeparator"): "",
	xml.W("pgNum"):                 "",
	xml.W("dayShort"):              "",
	xml.W("dayLong"):               "",
	xml.W("monthShort"):            "",
	xml.W("monthLong"):             "",
	xml.W("yearShort"):             "",
	xml.W("yearLong"):              "",
	xml.W("drawing"):               "",
	xml.W("pict"):                  "",
	xml.W("object"):                "",
	xml.W("ruby"):                  "",
}

// Ancestors that become groups.
var structuralElements = map[xml.Name]GroupKind{
	nameTbl:      GroupTable,
	nameTr:       GroupRow,
	nameTc:       GroupCell,
	nameP:        GroupParagraph,
	nameTxbx:     GroupTextbox,
	nameFootnote: GroupNote,
	nameEndnote:  GroupNote,
}

// Elements whose w:id takes part in revision id renumbering.
var revisionIDElements = map[xml.Name]bool{
	nameIns:                  true,
	nameDel:                  true,
	nameMoveFrom:             true,
	nameMoveTo:               true,
	nameRPrChange:            true,
	namePPrChange:            true,
	xml.W("sectPrChange"):    true,
	xml.W("tblPrChange"):     true,
	xml.W("tblPrExChange"):   true,
	xml.W("trPrChange"):      true,
	xml.W("tcPrChange"):      true,
	xml.W("tblGridChange"):   true,
	xml.W("numberingChange"): true,
	xml.W("cellIns"):         true,
	xml.W("cellDel"):         true,
	xml.W("cellMerge"):       true,
}

// Attributes ignored when comparing properties or hashing opaque content.
var volatileAttrs = map[string]bool{
	"rsidR":        true,
	"rsidRPr":      true,
	"rsidRDefault": true,
	"rsidP":        true,
	"rsidDel":      true,
	"rsidSect":     true,
	"rsidTr":       true,
	"paraId":       true,
	"textId":       true,
	"anchorId":     true,
	"editId":       true,
}
