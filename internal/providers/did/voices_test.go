package did

import "testing"

func TestVoiceForLocale(t *testing.T) {
	testCases := []struct {
		locale string
		want   string
	}{
		{"", "en-US-JennyNeural"},
		{"en", "en-US-JennyNeural"},
		{"en-GB", "en-GB-SoniaNeural"},
		{"id", "id-ID-GadisNeural"},
		{"id-ID", "id-ID-GadisNeural"},
		{"pt-PT", "pt-BR-FranciscaNeural"},
		{"ja-JP", "ja-JP-NanamiNeural"},
		{"ko-KR", "en-US-JennyNeural"},
		{"not a locale", "en-US-JennyNeural"},
	}

	for _, tc := range testCases {
		t.Run(tc.locale, func(t *testing.T) {
			if got := VoiceForLocale(tc.locale); got.ID != tc.want {
				t.Fatalf("VoiceForLocale(%q) = %q, want %q", tc.locale, got.ID, tc.want)
			}
		})
	}
}

func TestVoiceCatalogShape(t *testing.T) {
	catalog := Voices()
	if len(catalog) == 0 {
		t.Fatalf("expected a non-empty catalog")
	}
	if catalog[0].ID != DefaultVoiceID {
		t.Fatalf("catalog[0] = %q, want default voice %q", catalog[0].ID, DefaultVoiceID)
	}
	locales := SupportedLocales()
	if len(locales) != len(catalog) {
		t.Fatalf("locales = %d entries, want %d", len(locales), len(catalog))
	}
	seen := make(map[string]bool, len(catalog))
	for _, v := range catalog {
		if v.ID == "" || v.Language == "" {
			t.Fatalf("voice with empty fields: %#v", v)
		}
		if seen[v.ID] {
			t.Fatalf("duplicate voice id %q", v.ID)
		}
		seen[v.ID] = true
	}
}
