package model

import "strings"

var (
	// LossyCodecs are the lossy codec labels the archive offers.
	LossyCodecs = []string{"MP3"}

	// LosslessCodecs are the lossless codec labels the archive offers.
	LosslessCodecs = []string{"OGG", "M4A", "FLAC"}
)

// IsLossy reports whether label names a lossy codec. Case is ignored.
func IsLossy(label string) bool {
	return inFamily(label, LossyCodecs)
}

// IsLossless reports whether label names a lossless codec. Case is ignored.
func IsLossless(label string) bool {
	return inFamily(label, LosslessCodecs)
}

// LossyExtension is the extension used when a lossless file is replaced by its lossy variant.
func LossyExtension() string {
	return strings.ToLower(LossyCodecs[0])
}

func inFamily(label string, family []string) bool {
	label = strings.TrimSpace(label)
	for _, c := range family {
		if strings.EqualFold(label, c) {
			return true
		}
	}
	return false
}

// CodecAvailability lists the codec labels an album advertises in its
// table header, exactly as they appear on the page. An empty string means
// the family is not offered.
type CodecAvailability struct {
	Lossy    string
	Lossless string
}

// CodecIntent is what the user asked to download.
type CodecIntent struct {
	// WantLossy requests the lossy variant.
	WantLossy bool

	// SuppressLossless skips the lossless variant.
	SuppressLossless bool
}

// Plan is the ordered list of codec labels to fetch for every track.
type Plan []string
