package lexicon

import "github.com/papercomputeco/engram/pkg/memory"

// categories holds the full dictionary in priority order, strongest first.
// Phrases are lowercase; more specific phrases come before their prefixes so
// first-match reporting names the fuller phrase.
var categories = []Category{
	{
		Kind:   memory.SignalRemember,
		Weight: 0.9,
		Phrases: []string{
			"remember this",
			"remember that",
			"don't forget",
			"do not forget",
			"keep in mind",
			"note that",
			"make a note",
			"for future reference",
			"always remember",
			"recuerda",
			"no olvides",
			"merke dir",
			"nicht vergessen",
			"n'oublie pas",
			"запомни",
			"не забудь",
			"覚えて",
			"记住",
		},
	},
	{
		Kind:   memory.SignalConstraint,
		Weight: 0.8,
		Phrases: []string{
			"under no circumstances",
			"never do",
			"never use",
			"never run",
			"never commit",
			"must not",
			"mustn't",
			"don't ever",
			"do not ever",
			"forbidden",
			"not allowed",
			"is prohibited",
			"nunca uses",
			"nunca hagas",
			"niemals",
			"никогда не",
			"絶対に",
			"禁止",
		},
	},
	{
		Kind:   memory.SignalCorrection,
		Weight: 0.7,
		Phrases: []string{
			"no, actually",
			"that's wrong",
			"that is wrong",
			"that's incorrect",
			"not what i meant",
			"i meant",
			"i actually meant",
			"correction:",
			"to correct",
			"en realidad",
			"eigentlich meinte ich",
			"на самом деле",
		},
	},
	{
		Kind:   memory.SignalDecision,
		Weight: 0.7,
		Phrases: []string{
			"we decided",
			"we've decided",
			"i decided",
			"let's go with",
			"lets go with",
			"we'll go with",
			"the decision is",
			"decided to use",
			"settled on",
			"decidimos",
			"wir haben uns entschieden",
			"мы решили",
		},
	},
	{
		Kind:   memory.SignalBugfix,
		Weight: 0.7,
		Phrases: []string{
			"the bug was",
			"the issue was",
			"the problem was",
			"root cause",
			"fixed by",
			"was fixed",
			"fix was",
			"turned out the",
			"el error era",
			"der fehler war",
			"баг был",
		},
	},
	{
		Kind:   memory.SignalLearning,
		Weight: 0.7,
		Phrases: []string{
			"i learned",
			"i've learned",
			"we learned",
			"turns out",
			"til:",
			"til that",
			"now i understand",
			"now i know",
			"good to know",
			"aprendí",
			"ich habe gelernt",
			"я узнал",
			"原来",
		},
	},
	{
		Kind:   memory.SignalPreference,
		Weight: 0.6,
		Phrases: []string{
			"i prefer",
			"i'd prefer",
			"i like",
			"i'd rather",
			"i would rather",
			"always use",
			"please use",
			"my preference",
			"prefiero",
			"ich bevorzuge",
			"я предпочитаю",
			"私は",
		},
	},
	{
		Kind:   memory.SignalEmphasis,
		Weight: 0.6,
		Phrases: []string{
			"important:",
			"this is important",
			"very important",
			"critical:",
			"this is critical",
			"crucial",
			"essential",
			"importante",
			"wichtig",
			"важно",
			"重要",
		},
	},
	{
		Kind:   memory.SignalProcedural,
		Weight: 0.5,
		Phrases: []string{
			"the steps are",
			"step by step",
			"the process is",
			"the workflow is",
			"here's how to",
			"here is how to",
			"the way to do",
			"first you",
			"el proceso es",
			"процесс такой",
		},
	},
}

var byKind = func() map[memory.SignalKind]Category {
	m := make(map[memory.SignalKind]Category, len(categories))
	for _, c := range categories {
		m[c.Kind] = c
	}
	return m
}()

// classifiers maps classifying categories to classifications in the fixed
// priority order Classify walks.
var classifiers = []struct {
	kind  memory.SignalKind
	class memory.Classification
}{
	{memory.SignalBugfix, memory.ClassBugfix},
	{memory.SignalLearning, memory.ClassLearning},
	{memory.SignalConstraint, memory.ClassConstraint},
	{memory.SignalDecision, memory.ClassDecision},
	{memory.SignalPreference, memory.ClassPreference},
	{memory.SignalProcedural, memory.ClassProcedural},
}

// errorIndicators and resolutionIndicators drive the tool-event bugfix scan.
var errorIndicators = []string{
	"error:",
	"error ",
	"exception",
	"traceback",
	"panic:",
	"fatal:",
	"failed",
	"failure",
	"cannot ",
	"can't ",
	"not found",
	"permission denied",
	"segfault",
	"undefined",
}

var resolutionIndicators = []string{
	"fixed",
	"resolved",
	"solved",
	"works now",
	"working now",
	"passes now",
	"the fix",
	"patched",
	"corrected",
	"no longer fails",
}

// stopwords covers the function words of the supported languages, enough to
// keep cross-event repetition from keying on glue words.
var stopwords = func() map[string]struct{} {
	words := []string{
		// English
		"the", "a", "an", "and", "or", "but", "if", "then", "else", "when",
		"at", "by", "for", "with", "about", "against", "between", "into",
		"through", "during", "before", "after", "above", "below", "from",
		"up", "down", "in", "out", "on", "off", "over", "under", "again",
		"further", "once", "here", "there", "all", "any", "both", "each",
		"few", "more", "most", "other", "some", "such", "only", "own",
		"same", "so", "than", "too", "very", "can", "will", "just", "should",
		"could", "would", "may", "might", "must", "shall", "into", "onto",
		"this", "that", "these", "those", "what", "which", "who", "whom",
		"is", "are", "was", "were", "be", "been", "being", "have", "has",
		"had", "having", "do", "does", "did", "doing", "not", "no", "nor",
		"it", "its", "i", "you", "he", "she", "we", "they", "them", "their",
		"my", "your", "his", "her", "our", "me", "him", "us", "also",
		"because", "while", "where", "why", "how", "make", "made", "like",
		"use", "used", "using", "need", "want", "get", "got", "let",
		"please", "thanks", "think", "know", "sure", "yes", "okay", "ok",
		// Spanish
		"el", "la", "los", "las", "un", "una", "y", "o", "pero", "si", "de",
		"en", "que", "es", "por", "con", "para", "como", "más", "este",
		"esta", "ese", "esa",
		// German
		"der", "die", "das", "ein", "eine", "und", "oder", "aber", "wenn",
		"dann", "ist", "sind", "nicht", "mit", "für", "auf", "aus", "auch",
		// French
		"le", "les", "une", "et", "ou", "mais", "dans", "sur", "pas",
		"est", "sont", "avec", "pour", "que", "qui",
		// Russian
		"и", "в", "не", "на", "что", "это", "как", "но", "из", "по", "для",
	}

	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
