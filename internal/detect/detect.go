package detect

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Family groups indicator phrases by the kind of interstitial they mark.
type Family string

const (
	// FamilyCaptcha covers CAPTCHA challenge wording in multiple languages.
	FamilyCaptcha Family = "captcha"
	// FamilyConsent covers consent-wall domain and phrase markers.
	FamilyConsent Family = "consent"
	// FamilyLocalizedConsent covers localized consent phrases.
	FamilyLocalizedConsent Family = "localized_consent"
	// FamilyRecaptcha covers reCAPTCHA script and markup markers.
	FamilyRecaptcha Family = "recaptcha"
	// FamilyStructural covers exact form-action markers of known block and
	// consent endpoints.
	FamilyStructural Family = "structural"
)

// Indicator is a single lowercase phrase whose presence marks a page as a
// CAPTCHA/consent interstitial. Phrases must be specific enough that ordinary
// result pages never contain them: a false positive turns a good response into
// a retry, a false negative only feeds garbage to the extractor.
type Indicator struct {
	Family Family
	Phrase string
}

// DefaultIndicators returns the standard indicator table. The table is data,
// not behavior: deployments that see a new challenge phrasing extend it via
// New rather than patching the classifier.
func DefaultIndicators() []Indicator {
	return []Indicator{
		{FamilyCaptcha, "our systems have detected unusual traffic"},
		{FamilyCaptcha, "to continue, please type the characters"},
		{FamilyCaptcha, "verify that you are not a robot"},
		{FamilyCaptcha, "detected unusual traffic from your computer network"},
		{FamilyCaptcha, "controleer of je geen robot bent"},
		{FamilyCaptcha, "ik ben geen robot"},

		{FamilyConsent, "consent.google.com"},
		{FamilyConsent, "consent.google.nl"},
		{FamilyConsent, "before you continue to google search"},
		{FamilyConsent, "voordat u doorgaat naar google zoeken"},
		{FamilyConsent, "voordat je verdergaat naar google zoeken"},
		{FamilyConsent, "avant de continuer vers la recherche google"},
		{FamilyConsent, "bevor sie mit der google-suche fortfahren"},

		{FamilyLocalizedConsent, "voordat je verdergaat naar google zoeken"},
		{FamilyLocalizedConsent, "ga verder naar google zoeken"},

		{FamilyRecaptcha, "g-recaptcha"},
		{FamilyRecaptcha, "grecaptcha"},
		{FamilyRecaptcha, "recaptcha/api.js"},

		{FamilyStructural, `<form action="https://consent.google.com/save"`},
		{FamilyStructural, `<form action="https://www.google.com/sorry/index"`},
	}
}

// Detector classifies response bodies as CAPTCHA/consent interstitials.
type Detector struct {
	indicators []Indicator
}

// New creates a Detector over the given indicator table. With no indicators
// the default table is used.
func New(indicators []Indicator) *Detector {
	if len(indicators) == 0 {
		indicators = DefaultIndicators()
	}
	copied := make([]Indicator, len(indicators))
	copy(copied, indicators)
	return &Detector{indicators: copied}
}

// Classify reports whether the body is a block/consent page and, if so, which
// indicator family matched first. The body is matched case-folded both as-is
// and with combining diacritical marks stripped, so "reCAPTCHA vérification"
// and its ASCII-folded rendering classify identically.
func (d *Detector) Classify(body string) (bool, Family) {
	if body == "" {
		return false, ""
	}

	lower := strings.ToLower(body)
	spaces := []string{lower}
	if folded := stripMarks(body); folded != lower {
		spaces = append(spaces, folded)
	}

	for _, ind := range d.indicators {
		for _, space := range spaces {
			if strings.Contains(space, ind.Phrase) {
				return true, ind.Family
			}
		}
	}
	return false, ""
}

// IsBlocked reports whether any indicator from any family matches the body.
func (d *Detector) IsBlocked(body string) bool {
	blocked, _ := d.Classify(body)
	return blocked
}

// stripMarks lowercases the text after NFKD decomposition and removal of
// combining marks, so accented variants compare equal to their base letters.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(folded)
}
