package khinsider

import "github.com/handiism/vgm-downloader/internal/model"

// SelectCodecs turns the user's intent and the album's codecs into a plan.
//
// The lossy label comes first when requested, then the lossless label unless
// suppressed. When neither lossy was requested nor lossless suppressed and the
// album has no lossless codec, the lossy label is used instead and downgraded
// is true so the caller can tell the user.
//
// SuppressLossless without WantLossy on a lossless-only album yields an empty plan.
func SelectCodecs(intent model.CodecIntent, avail model.CodecAvailability) (plan model.Plan, downgraded bool) {
	plan = model.Plan{}
	if intent.WantLossy && avail.Lossy != "" {
		plan = append(plan, avail.Lossy)
	}
	if !intent.SuppressLossless && avail.Lossless != "" {
		plan = append(plan, avail.Lossless)
	}
	if !intent.SuppressLossless && !intent.WantLossy && avail.Lossless == "" && avail.Lossy != "" {
		plan = append(plan, avail.Lossy)
		downgraded = true
	}
	return plan, downgraded
}
