package asm

import "github.com/golang/glog"

// AssembleBytes lays every Bytes element out at its output offset. The image
// starts at the first element's offset; gaps are zero-filled and later
// elements may overwrite earlier ones. An element placed before the start of
// the image is reported and left out.
func AssembleBytes(elems []Element) ([]byte, Diagnostics) {
	var diags Diagnostics
	var image []byte
	base, started := 0, false
	var tmpl templateDepth

	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		b, ok := el.(*Bytes)
		if !ok || len(b.Slots) == 0 {
			continue
		}
		if !started {
			base, started = b.Out, true
		}

		off := b.Out - base
		if off < 0 {
			diags.Add(Encoding, b.Location, "cannot rewind output before first ORG (0x%04X < 0x%04X)", b.Out, base)
			continue
		}
		if end := off + len(b.Slots); end > len(image) {
			image = append(image, make([]byte, end-len(image))...)
		}
		copy(image[off:], b.Data())
	}

	glog.V(1).Infof("output: %d bytes from 0x%04X", len(image), base)
	return image, diags
}

// imageOrigin returns the output offset the image produced by AssembleBytes starts at.
func imageOrigin(elems []Element) int {
	var tmpl templateDepth
	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		if b, ok := el.(*Bytes); ok && len(b.Slots) > 0 {
			return b.Out
		}
	}
	return 0
}

// SourceMap maps the logical address of each emitted element to the line that
// produced it. When several elements share an address the first one wins.
func SourceMap(elems []Element) map[int]Location {
	m := make(map[int]Location)
	var tmpl templateDepth
	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		if b, ok := el.(*Bytes); ok && len(b.Slots) > 0 {
			if _, seen := m[b.Address]; !seen {
				m[b.Address] = b.Location
			}
		}
	}
	return m
}
