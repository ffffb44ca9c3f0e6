package reviews

import "strings"

// Label is the final compliance classification of a manager action.
type Label string

const (
	LabelCompatible          Label = "compatible"
	LabelPartiallyCompatible Label = "partially-compatible"
	LabelIncompatible        Label = "incompatible"
	LabelNotApplicable       Label = "not-applicable"
	LabelUnclassified        Label = "unclassified"
)

// Display returns the Portuguese presentation form of the label.
func (l Label) Display() string {
	switch l {
	case LabelCompatible:
		return "✅ Compatível"
	case LabelPartiallyCompatible:
		return "⚠️ Parcialmente compatível"
	case LabelIncompatible:
		return "❌ Incompatível"
	case LabelNotApplicable:
		return "🚫 Não Aplicável"
	default:
		return "Não classificado"
	}
}

// classificationRules is the ordered marker table. Evaluation is first match
// wins; each rule accepts the emoji-prefixed phrase the verdict prompt asks
// for plus a diacritic-insensitive plain spelling to tolerate model variance.
var classificationRules = []struct {
	label Label
	match func(norm string) bool
}{
	{LabelCompatible, matchCompatible},
	{LabelPartiallyCompatible, func(norm string) bool { return strings.Contains(norm, "parcialmente") }},
	{LabelIncompatible, func(norm string) bool { return strings.Contains(norm, "incompativel") }},
	{LabelNotApplicable, func(norm string) bool { return strings.Contains(norm, "nao aplicavel") }},
}

// Classify reduces a free-text verdict to exactly one Label. It is a pure
// function of its input: same text, same label.
func Classify(verdict string) Label {
	norm := normalizeVerdict(verdict)
	for _, rule := range classificationRules {
		if rule.match(norm) {
			return rule.label
		}
	}
	return LabelUnclassified
}

func matchCompatible(norm string) bool {
	if strings.Contains(norm, "✅ compativel") {
		return true
	}
	// Plain spelling: "compativel" must stand on its own, not as the tail of
	// "incompativel" nor qualified by a nearby "parcialmente".
	offset := 0
	for {
		i := strings.Index(norm[offset:], "compativel")
		if i == -1 {
			return false
		}
		at := offset + i
		if !strings.HasSuffix(norm[:at], "in") && !qualifiedPartial(norm[:at]) {
			return true
		}
		offset = at + len("compativel")
	}
}

func qualifiedPartial(prefix string) bool {
	j := strings.LastIndex(prefix, "parcialmente")
	return j != -1 && len(prefix)-j < 32
}

// verdictNormalizer lowercasing happens first, so only lowercase diacritics
// need mapping.
var verdictNormalizer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e",
	"í", "i", "î", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func normalizeVerdict(verdict string) string {
	return verdictNormalizer.Replace(strings.ToLower(verdict))
}
