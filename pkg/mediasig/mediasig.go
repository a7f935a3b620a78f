// Package mediasig classifies byte payloads by leading container/codec
// signatures. It decides whether downloaded or uploaded content is plausibly
// an audio/video file, an HTML page (which drives script-redirect handling in
// the downloader), or junk.
package mediasig

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the coarse classification of a payload.
type Kind int

const (
	// KindMedia means a known audio/video signature matched.
	KindMedia Kind = iota
	// KindHTML means the payload starts like an HTML document. Kept distinct
	// from KindUnknown because HTML bodies may carry a script redirect to the
	// real media URL.
	KindHTML
	// KindInconclusive means the payload is too short to classify reliably.
	// Callers accept inconclusive content rather than rejecting it.
	KindInconclusive
	// KindUnknown means no signature matched on content long enough to judge.
	KindUnknown
)

// inconclusiveThreshold is the size at or below which content is never
// rejected on signature grounds.
const inconclusiveThreshold = 100

// DefaultMIME is reported for accepted content with no recognized signature.
const DefaultMIME = "application/octet-stream"

type signature struct {
	prefix []byte
	mime   string
}

// Known leading signatures: RIFF (WAV/AVI), OGG, FLAC, MP3 frame sync
// variants, ID3-tagged MP3. The MPEG-4 family is matched separately via the
// ftyp box at offset 4.
var signatures = []signature{
	{[]byte("RIFF"), "audio/wav"},
	{[]byte("OggS"), "audio/ogg"},
	{[]byte("fLaC"), "audio/flac"},
	{[]byte("ID3"), "audio/mpeg"},
	{[]byte{0xFF, 0xFB}, "audio/mpeg"},
	{[]byte{0xFF, 0xF3}, "audio/mpeg"},
	{[]byte{0xFF, 0xF2}, "audio/mpeg"},
}

var htmlPrefixes = [][]byte{
	[]byte("<!DOCTYPE html"),
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<HTML"),
}

// Classification is the result of inspecting a payload prefix.
type Classification struct {
	Kind Kind
	// MIME is set for KindMedia and KindInconclusive. It falls back to
	// DefaultMIME when no signature matched.
	MIME string
}

// Accepted reports whether callers should treat the payload as usable media.
func (c Classification) Accepted() bool {
	return c.Kind == KindMedia || c.Kind == KindInconclusive
}

// Classify inspects the leading bytes of p against the signature table.
func Classify(p []byte) Classification {
	for _, sig := range signatures {
		if bytes.HasPrefix(p, sig.prefix) {
			return Classification{Kind: KindMedia, MIME: sig.mime}
		}
	}
	// MPEG-4 family (M4A/MP4/MOV): a size field then "ftyp".
	if len(p) >= 8 && bytes.Equal(p[4:8], []byte("ftyp")) {
		return Classification{Kind: KindMedia, MIME: "audio/mp4"}
	}

	trimmed := bytes.TrimLeft(p, " \t\r\n")
	for _, prefix := range htmlPrefixes {
		if bytes.HasPrefix(trimmed, prefix) {
			return Classification{Kind: KindHTML}
		}
	}

	if len(p) <= inconclusiveThreshold {
		return Classification{Kind: KindInconclusive, MIME: sniffMIME(p)}
	}
	return Classification{Kind: KindUnknown}
}

// sniffMIME asks the mimetype detector for a second opinion on content that
// passed signature checks without a table match.
func sniffMIME(p []byte) string {
	if len(p) == 0 {
		return DefaultMIME
	}
	return mimetype.Detect(p).String()
}

// DetectMIME returns the best MIME guess for accepted content: the signature
// table first, then content sniffing, then DefaultMIME.
func DetectMIME(p []byte) string {
	c := Classify(p)
	if c.MIME != "" && c.MIME != DefaultMIME {
		return c.MIME
	}
	return sniffMIME(p)
}
