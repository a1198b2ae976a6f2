package layout

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"

	"franklink-backend/internal/domain"
)

const (
	fontFamily    = "Figtree, system-ui, sans-serif"
	groupPill     = 56.0
	groupPillR    = 16.0
	badgeHeight   = 20.0
	badgeRadius   = 10.0
	colorSelf     = "#2563EB"
	colorUser     = "#60A5FA"
	colorGroup    = "#0D9488"
	colorBadge    = "#64748B"
	colorGroupRim = "rgba(13,148,136,0.3)"
	colorLinkGrp  = "#5EEAD4"
	colorLinkDir  = "#E2E8F0"
)

func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// RenderSVG draws the graph at the positions in f. Nodes without a position
// are drawn at the viewport centre.
func RenderSVG(w io.Writer, g *domain.Graph, f Frame) error {
	vp := f.Viewport.OrDefault()
	cx, cy := vp.center()
	pos := make(map[string]Position, len(f.Positions))
	for _, p := range f.Positions {
		pos[p.ID] = p
	}
	at := func(id string) (float64, float64) {
		if p, ok := pos[id]; ok {
			return p.X, p.Y
		}
		return cx, cy
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%s" height="%s">`+"\n",
		num(vp.Width), num(vp.Height), num(vp.Width), num(vp.Height))
	bw.WriteString(`<defs><filter id="nodeShadow" x="-50%" y="-50%" width="200%" height="200%">` +
		`<feDropShadow dx="0" dy="2" stdDeviation="4" flood-color="rgba(15, 23, 42, 0.1)"/></filter></defs>` + "\n")

	bw.WriteString("<g class=\"links\">\n")
	for _, e := range g.Edges {
		x1, y1 := at(e.Source)
		x2, y2 := at(e.Target)
		stroke, dash := colorLinkDir, "none"
		if e.Kind == domain.EdgeKindGroup {
			stroke, dash = colorLinkGrp, "6 4"
		}
		fmt.Fprintf(bw, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1.5" stroke-linecap="round" stroke-dasharray="%s" opacity="0.8"/>`+"\n",
			num(x1), num(y1), num(x2), num(y2), stroke, dash)
	}
	bw.WriteString("</g>\n<g class=\"nodes\">\n")

	for _, n := range g.Nodes {
		x, y := at(n.ID)
		fmt.Fprintf(bw, `<g transform="translate(%s,%s)" data-id="%s"><title>%s</title>`,
			num(x), num(y), html.EscapeString(n.ID), html.EscapeString(n.Label))
		writeShape(bw, n)
		writeBadge(bw, n)
		bw.WriteString("</g>\n")
	}
	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}

func writeShape(w *bufio.Writer, n domain.GraphNode) {
	r := num(n.Radius)
	switch n.Kind {
	case domain.NodeKindGroup:
		half := num(-groupPill / 2)
		size := num(groupPill)
		fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s" filter="url(#nodeShadow)"/>`,
			half, half, size, size, num(groupPillR), colorGroup)
		fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="none" stroke="%s" stroke-width="2" stroke-dasharray="4 3"/>`,
			half, half, size, size, num(groupPillR), colorGroupRim)
		count := "?"
		if n.MemberCount > 0 {
			count = strconv.Itoa(n.MemberCount)
		}
		fmt.Fprintf(w, `<text text-anchor="middle" dy="0.35em" fill="white" font-size="16" font-weight="700" font-family="%s">%s</text>`,
			fontFamily, count)
	default:
		fill, rim, size := colorUser, "rgba(96,165,250,0.3)", 14
		if n.Kind == domain.NodeKindSelf {
			fill, rim, size = colorSelf, "rgba(37,99,235,0.3)", 18
		}
		fmt.Fprintf(w, `<circle r="%s" fill="%s" filter="url(#nodeShadow)"/>`, r, fill)
		fmt.Fprintf(w, `<circle r="%s" fill="none" stroke="%s" stroke-width="2"/>`, r, rim)
		fmt.Fprintf(w, `<text text-anchor="middle" dy="0.35em" fill="white" font-size="%d" font-weight="700" font-family="%s">%s</text>`,
			size, fontFamily, html.EscapeString(domain.Initials(n.Label)))
	}
}

func writeBadge(w *bufio.Writer, n domain.GraphNode) {
	chars := float64(len([]rune(n.ShortLabel)))
	fill := colorBadge
	switch n.Kind {
	case domain.NodeKindGroup:
		fill = colorGroup
	case domain.NodeKindSelf:
		fill = colorSelf
	}
	fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s" opacity="0.9"/>`,
		num(-math.Max(chars*4, 20)), num(n.Radius+6), num(math.Max(chars*8, 40)),
		num(badgeHeight), num(badgeRadius), fill)
	fmt.Fprintf(w, `<text text-anchor="middle" y="%s" fill="white" font-size="11" font-weight="600" font-family="%s">%s</text>`,
		num(n.Radius+20), fontFamily, html.EscapeString(n.ShortLabel))
}
