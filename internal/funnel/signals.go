package funnel

import "regexp"

// Signals are coarse boolean cues recomputed from each inbound message. They
// are never persisted.
type Signals struct {
	MentionsInstall bool
	NegatedInstall  bool
	LooksLikeRepair bool
}

// ---------- package-level compiled patterns ----------

var (
	installRE = regexp.MustCompile(`\binstal(ar|acao|ado|a|e|ei|em|ou)?\b`)

	negatedInstallRE = regexp.MustCompile(
		`nao (e|eh|quero|preciso|precisa|seria) .{0,20}instal|` +
			`nao (e|eh) (pra |para )?instalar|` +
			`ja (esta|ta|foi) instalad|ja instalei|ja tem instalacao`)

	repairPatterns = []*regexp.Regexp{
		regexp.MustCompile(`nao (liga|acende|esquenta|gela|funciona|centrifuga|seca|gira|enche|drena|lava)`),
		regexp.MustCompile(`parou de (funcionar|gelar|esquentar|lavar|ligar)`),
		regexp.MustCompile(`\bdefeito\b|\bquebr(ou|ado|ada)\b|\bpifou\b`),
		regexp.MustCompile(`\bconsert(o|ar|a)\b|\brepar(o|ar)\b`),
		regexp.MustCompile(`\bvaz(a|ando|amento)\b`),
		regexp.MustCompile(`\bfaisca\b|\bcurto\b|\bfumaca\b|\bcheiro de (gas|queimado)\b`),
		regexp.MustCompile(`\bbarulho (estranho|alto)\b|\bfazendo barulho\b`),
		regexp.MustCompile(`boca[s]? (nao|que nao) acend`),
	}
)

// DetectSignals evaluates the predicates over an already-normalized message.
// The predicates are independent of one another.
func DetectSignals(normalized string) Signals {
	repair := matchesRepair(normalized)
	return Signals{
		// An install mention only counts when the message carries no repair
		// vocabulary of its own ("instalei e agora nao liga" is a complaint).
		MentionsInstall: installRE.MatchString(normalized) && !repair,
		NegatedInstall:  negatedInstallRE.MatchString(normalized),
		LooksLikeRepair: repair,
	}
}

func matchesRepair(normalized string) bool {
	for _, re := range repairPatterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}
