package captions

import (
	"golang.org/x/text/language"
)

// chooseTrack selects the best caption track for the preferred languages.
// Manually authored tracks win over auto-generated ("asr") tracks of the same
// language; when nothing matches the preferences, the first manual track (or
// failing that, the first track at all) is used so a transcript in the wrong
// language still beats the slow path.
func chooseTrack(tracks []Track, preferred []string) Track {
	if len(tracks) == 1 {
		return tracks[0]
	}

	tags := make([]language.Tag, 0, len(tracks))
	for _, track := range tracks {
		tag, err := language.Parse(track.LangCode)
		if err != nil {
			tag = language.Und
		}
		tags = append(tags, tag)
	}

	var wanted []language.Tag
	for _, pref := range preferred {
		if tag, err := language.Parse(pref); err == nil {
			wanted = append(wanted, tag)
		}
	}

	if len(wanted) > 0 {
		matcher := language.NewMatcher(tags)
		if _, index, confidence := matcher.Match(wanted...); confidence > language.No {
			best := index
			// Prefer a manual track in the same language over the matched one.
			if tracks[best].Kind == "asr" {
				for i, track := range tracks {
					if track.Kind != "asr" && sameBase(tags[i], tags[best]) {
						best = i
						break
					}
				}
			}
			return tracks[best]
		}
	}

	for _, track := range tracks {
		if track.Kind != "asr" {
			return track
		}
	}
	return tracks[0]
}

func sameBase(a, b language.Tag) bool {
	baseA, confA := a.Base()
	baseB, confB := b.Base()
	return confA > language.No && confB > language.No && baseA == baseB
}
