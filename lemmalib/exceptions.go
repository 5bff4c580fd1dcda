package lemmalib

// irregular forms
var defaultExceptions = map[string]map[string]string{
	Verb: {
		"am": "be", "is": "be", "are": "be", "was": "be", "were": "be", "been": "be",
		"has": "have", "had": "have",
		"does": "do", "did": "do", "done": "do",
		"went": "go", "gone": "go",
		"made": "make", "said": "say", "paid": "pay", "laid": "lay",
		"took": "take", "taken": "take", "came": "come", "became": "become",
		"saw": "see", "seen": "see", "knew": "know", "known": "know",
		"got": "get", "gotten": "get", "gave": "give", "given": "give",
		"found": "find", "thought": "think", "told": "tell", "sold": "sell",
		"left": "leave", "felt": "feel", "kept": "keep", "slept": "sleep",
		"meant": "mean", "met": "meet", "led": "lead", "fed": "feed",
		"brought": "bring", "bought": "buy", "taught": "teach", "caught": "catch",
		"fought": "fight", "sought": "seek",
		"began": "begin", "begun": "begin", "ran": "run", "sat": "sit",
		"held": "hold", "stood": "stand", "understood": "understand",
		"wrote": "write", "written": "write", "drove": "drive", "driven": "drive",
		"rose": "rise", "risen": "rise", "chose": "choose", "chosen": "choose",
		"spoke": "speak", "spoken": "speak", "broke": "break", "broken": "break",
		"woke": "wake", "woken": "wake", "wore": "wear", "worn": "wear",
		"ate": "eat", "eaten": "eat", "fell": "fall", "fallen": "fall",
		"drew": "draw", "drawn": "draw", "grew": "grow", "grown": "grow",
		"threw": "throw", "thrown": "throw", "flew": "fly", "flown": "fly",
		"sang": "sing", "sung": "sing", "swam": "swim", "swum": "swim",
		"won": "win", "lost": "lose", "sent": "send", "spent": "spend",
		"built": "build", "heard": "hear", "lain": "lie",
	},
	Noun: {
		"men": "man", "women": "woman", "children": "child", "feet": "foot",
		"teeth": "tooth", "geese": "goose", "mice": "mouse", "people": "person",
		"oxen": "ox", "lice": "louse",
	},
	Adj: {
		"better": "good", "best": "good", "worse": "bad", "worst": "bad",
		"further": "far", "farther": "far", "furthest": "far", "farthest": "far",
		"less": "little", "least": "little",
	},
}
