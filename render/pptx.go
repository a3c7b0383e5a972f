package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/clindoc/sasdoc/doc"
)

// Slide geometry in EMUs (914400 per inch) on a 10 x 7.5 inch canvas.
const (
	pptxSlideWidth  = 9144000
	pptxSlideHeight = 6858000

	pptxTableX      = 914400
	pptxTableY      = 1828800
	pptxTableWidth  = 7315200
	pptxTableHeight = 3657600
)

const pptxXMLHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const pptxNamespaces = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

// pptxBuilder accumulates slide XML, then packages the deck with the
// fixed master, layout and theme parts an OOXML presentation requires.
type pptxBuilder struct {
	font   string
	size   int
	slides []string
}

type pptxParagraph struct {
	Text   string
	Size   int
	Bold   bool
	Mono   bool
	Center bool
}

// renderPPTX writes the manual as a deck: a title slide, then one
// slide per section. The parameter table becomes a native table shape.
func renderPPTX(document *doc.Document, opts Options) ([]byte, error) {
	b := &pptxBuilder{font: opts.FontFamily, size: opts.FontSize}
	b.addTitleSlide(document.Title())
	for _, entry := range document.OrderedSections() {
		if table, ok := entry.Content.(doc.ParameterTable); ok {
			b.addTableSlide(string(entry.Section), table)
			continue
		}
		b.addTextSlide(string(entry.Section), doc.FormatContent(entry.Content))
	}
	return b.archive()
}

func (b *pptxBuilder) addTitleSlide(title string) {
	b.addSlide(func(sb *strings.Builder) {
		b.textbox(sb, 2, "Title", 457200, 1828800, 8229600, 1143000, []pptxParagraph{
			{Text: title, Size: 4400, Bold: true, Center: true},
		})
		b.textbox(sb, 3, "Subtitle", 457200, 3200400, 8229600, 914400, []pptxParagraph{
			{Text: "SAS Macro Documentation", Size: 2400, Center: true},
		})
	})
}

func (b *pptxBuilder) addTextSlide(heading, body string) {
	paras := []pptxParagraph{}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			paras = append(paras, pptxParagraph{})
		case doc.CodeLine(line):
			paras = append(paras, pptxParagraph{Text: trimmed, Size: (b.size - 2) * 100, Mono: true})
		default:
			paras = append(paras, pptxParagraph{Text: trimmed, Size: b.size * 100})
		}
	}
	b.addSlide(func(sb *strings.Builder) {
		b.headingBox(sb, heading)
		b.textbox(sb, 3, "Content", 457200, 1371600, 8229600, 5029200, paras)
	})
}

func (b *pptxBuilder) addTableSlide(heading string, table doc.ParameterTable) {
	b.addSlide(func(sb *strings.Builder) {
		b.headingBox(sb, heading)
		b.tableFrame(sb, 3, table)
	})
}

func (b *pptxBuilder) headingBox(sb *strings.Builder, heading string) {
	b.textbox(sb, 2, "Heading", 457200, 274320, 8229600, 914400, []pptxParagraph{
		{Text: heading, Size: 3200, Bold: true},
	})
}

func (b *pptxBuilder) addSlide(shapes func(sb *strings.Builder)) {
	var sb strings.Builder
	sb.WriteString(pptxXMLHeader)
	sb.WriteString(`<p:sld ` + pptxNamespaces + `><p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
	shapes(&sb)
	sb.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	b.slides = append(b.slides, sb.String())
}

func (b *pptxBuilder) textbox(sb *strings.Builder, id int, name string, x, y, cx, cy int, paras []pptxParagraph) {
	fmt.Fprintf(sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, id, xmlEscape(name))
	fmt.Fprintf(sb, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`, x, y, cx, cy)
	sb.WriteString(`<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>`)
	for _, para := range paras {
		if para.Center {
			sb.WriteString(`<a:p><a:pPr algn="ctr"/>`)
		} else {
			sb.WriteString(`<a:p>`)
		}
		if para.Text != "" {
			face := b.font
			if para.Mono {
				face = "Courier New"
			}
			fmt.Fprintf(sb, `<a:r><a:rPr lang="en-US" sz="%d" b="%d"><a:latin typeface="%s"/></a:rPr><a:t>%s</a:t></a:r>`,
				para.Size, boolAttr(para.Bold), xmlEscape(face), xmlEscape(para.Text))
		}
		sb.WriteString(`</a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
}

func (b *pptxBuilder) tableFrame(sb *strings.Builder, id int, table doc.ParameterTable) {
	cols := len(table.Headers)
	colWidth := pptxTableWidth / cols
	fmt.Fprintf(sb, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Parameters"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, id)
	fmt.Fprintf(sb, `<p:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm>`,
		pptxTableX, pptxTableY, pptxTableWidth, pptxTableHeight)
	sb.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">`)
	sb.WriteString(`<a:tbl><a:tblPr firstRow="1" bandRow="1"/><a:tblGrid>`)
	for i := 0; i < cols; i++ {
		fmt.Fprintf(sb, `<a:gridCol w="%d"/>`, colWidth)
	}
	sb.WriteString(`</a:tblGrid>`)
	b.tableRow(sb, table.Headers, true)
	for _, row := range table.Rows {
		b.tableRow(sb, row, false)
	}
	sb.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
}

func (b *pptxBuilder) tableRow(sb *strings.Builder, cells []string, header bool) {
	sb.WriteString(`<a:tr h="370840">`)
	for _, cell := range cells {
		fmt.Fprintf(sb, `<a:tc><a:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US" sz="%d" b="%d"><a:latin typeface="%s"/></a:rPr><a:t>%s</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc>`,
			b.size*100, boolAttr(header), xmlEscape(b.font), xmlEscape(cell))
	}
	sb.WriteString(`</a:tr>`)
}

func boolAttr(v bool) int {
	if v {
		return 1
	}
	return 0
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// archive packages all parts into the zip container. Part names are
// written in sorted order so output is deterministic.
func (b *pptxBuilder) archive() ([]byte, error) {
	parts := map[string]string{
		"[Content_Types].xml":                          b.contentTypes(),
		"_rels/.rels":                                  pptxRootRels,
		"ppt/presentation.xml":                         b.presentationXML(),
		"ppt/_rels/presentation.xml.rels":              b.presentationRels(),
		"ppt/slideMasters/slideMaster1.xml":            pptxSlideMaster,
		"ppt/slideMasters/_rels/slideMaster1.xml.rels": pptxSlideMasterRels,
		"ppt/slideLayouts/slideLayout1.xml":            pptxSlideLayout,
		"ppt/slideLayouts/_rels/slideLayout1.xml.rels": pptxSlideLayoutRels,
		"ppt/theme/theme1.xml":                         pptxTheme,
	}
	for i, slide := range b.slides {
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = slide
		parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1)] = pptxSlideRels
	}

	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *pptxBuilder) contentTypes() string {
	var sb strings.Builder
	sb.WriteString(pptxXMLHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := range b.slides {
		fmt.Fprintf(&sb, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	sb.WriteString(`</Types>`)
	return sb.String()
}

func (b *pptxBuilder) presentationXML() string {
	var sb strings.Builder
	sb.WriteString(pptxXMLHeader)
	sb.WriteString(`<p:presentation ` + pptxNamespaces + `>`)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	sb.WriteString(`<p:sldIdLst>`)
	for i := range b.slides {
		fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, 2+i)
	}
	sb.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&sb, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="%d" cy="%d"/>`,
		pptxSlideWidth, pptxSlideHeight, pptxSlideHeight, pptxSlideWidth)
	sb.WriteString(`</p:presentation>`)
	return sb.String()
}

func (b *pptxBuilder) presentationRels() string {
	var sb strings.Builder
	sb.WriteString(pptxXMLHeader)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	sb.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := range b.slides {
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, 2+i, i+1)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

const pptxRootRels = pptxXMLHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	`</Relationships>`

const pptxSlideRels = pptxXMLHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`</Relationships>`

const pptxSlideMaster = pptxXMLHeader +
	`<p:sldMaster ` + pptxNamespaces + `>` +
	`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const pptxSlideMasterRels = pptxXMLHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const pptxSlideLayout = pptxXMLHeader +
	`<p:sldLayout ` + pptxNamespaces + `>` +
	`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>`

const pptxSlideLayoutRels = pptxXMLHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

const pptxTheme = pptxXMLHeader +
	`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink></a:clrScheme>` +
	`<a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme>` +
	`<a:fmtScheme name="Office"><a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst></a:fmtScheme>` +
	`</a:themeElements></a:theme>`
