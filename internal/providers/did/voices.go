package did

import "golang.org/x/text/language"

// DefaultVoiceID is used when no catalog voice matches the caller's locale.
const DefaultVoiceID = "en-US-JennyNeural"

// Voice describes a text-to-speech voice offered by the microsoft provider.
type Voice struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Name     string `json:"name"`
}

// The first entry doubles as the matcher fallback and must stay the default
// voice.
var voices = []Voice{
	{ID: "en-US-JennyNeural", Language: "en-US", Name: "Jenny"},
	{ID: "en-GB-SoniaNeural", Language: "en-GB", Name: "Sonia"},
	{ID: "id-ID-GadisNeural", Language: "id-ID", Name: "Gadis"},
	{ID: "es-ES-ElviraNeural", Language: "es-ES", Name: "Elvira"},
	{ID: "fr-FR-DeniseNeural", Language: "fr-FR", Name: "Denise"},
	{ID: "de-DE-KatjaNeural", Language: "de-DE", Name: "Katja"},
	{ID: "pt-BR-FranciscaNeural", Language: "pt-BR", Name: "Francisca"},
	{ID: "ja-JP-NanamiNeural", Language: "ja-JP", Name: "Nanami"},
}

var voiceMatcher = language.NewMatcher(voiceTags())

func voiceTags() []language.Tag {
	tags := make([]language.Tag, 0, len(voices))
	for _, v := range voices {
		tags = append(tags, language.MustParse(v.Language))
	}
	return tags
}

// Voices returns the supported voice catalog.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// SupportedLocales lists the BCP 47 locales covered by the voice catalog.
func SupportedLocales() []string {
	out := make([]string, 0, len(voices))
	for _, v := range voices {
		out = append(out, v.Language)
	}
	return out
}

// VoiceForLocale returns the catalog voice closest to the given BCP 47
// locale, falling back to the default voice when nothing matches.
func VoiceForLocale(locale string) Voice {
	tag, err := language.Parse(locale)
	if err != nil {
		return voices[0]
	}
	_, index, conf := voiceMatcher.Match(tag)
	if conf == language.No {
		return voices[0]
	}
	return voices[index]
}
