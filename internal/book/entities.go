package book

import (
	"regexp"
	"strconv"
	"strings"
)

// referenceRe matches named (&nbsp;) and numeric (&#160; / &#xA0;) character
// references. The same pattern serves text, attribute values and entity
// replacement text.
var referenceRe = regexp.MustCompile(`&(#(x|X)?)?([A-Za-z0-9]+);`)

// ExpandReferences replaces character references in s with their literal
// Unicode text. Named references resolve against entities; names absent from
// the table are left in place and returned so the caller can warn about them.
func ExpandReferences(s string, entities map[string]string) (string, []string) {
	if !strings.ContainsRune(s, '&') {
		return s, nil
	}

	var unresolved []string
	out := referenceRe.ReplaceAllStringFunc(s, func(ref string) string {
		m := referenceRe.FindStringSubmatch(ref)
		numeric, hex, name := m[1], m[2], m[3]

		if numeric != "" {
			base := 10
			if hex != "" {
				base = 16
			}
			code, err := strconv.ParseInt(name, base, 32)
			if err != nil {
				unresolved = append(unresolved, name)
				return ref
			}
			return string(rune(code))
		}

		if text, ok := entities[name]; ok {
			return text
		}
		unresolved = append(unresolved, name)
		return ref
	})
	return out, unresolved
}

// namedEntities maps XHTML named character references to their replacement
// text: the XML predefined set, the Latin-1 block and the common typographic,
// arrow and math names that show up in book manuscripts.
var namedEntities = map[string]string{
	// XML predefined
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"apos": "'",

	// Latin-1
	"nbsp":   " ",
	"iexcl":  "¡",
	"cent":   "¢",
	"pound":  "£",
	"curren": "¤",
	"yen":    "¥",
	"brvbar": "¦",
	"sect":   "§",
	"uml":    "¨",
	"copy":   "©",
	"ordf":   "ª",
	"laquo":  "«",
	"not":    "¬",
	"shy":    "­",
	"reg":    "®",
	"macr":   "¯",
	"deg":    "°",
	"plusmn": "±",
	"sup2":   "²",
	"sup3":   "³",
	"acute":  "´",
	"micro":  "µ",
	"para":   "¶",
	"middot": "·",
	"cedil":  "¸",
	"sup1":   "¹",
	"ordm":   "º",
	"raquo":  "»",
	"frac14": "¼",
	"frac12": "½",
	"frac34": "¾",
	"iquest": "¿",
	"Agrave": "À",
	"Aacute": "Á",
	"Acirc":  "Â",
	"Atilde": "Ã",
	"Auml":   "Ä",
	"Aring":  "Å",
	"AElig":  "Æ",
	"Ccedil": "Ç",
	"Egrave": "È",
	"Eacute": "É",
	"Ecirc":  "Ê",
	"Euml":   "Ë",
	"Igrave": "Ì",
	"Iacute": "Í",
	"Icirc":  "Î",
	"Iuml":   "Ï",
	"ETH":    "Ð",
	"Ntilde": "Ñ",
	"Ograve": "Ò",
	"Oacute": "Ó",
	"Ocirc":  "Ô",
	"Otilde": "Õ",
	"Ouml":   "Ö",
	"times":  "×",
	"Oslash": "Ø",
	"Ugrave": "Ù",
	"Uacute": "Ú",
	"Ucirc":  "Û",
	"Uuml":   "Ü",
	"Yacute": "Ý",
	"THORN":  "Þ",
	"szlig":  "ß",
	"agrave": "à",
	"aacute": "á",
	"acirc":  "â",
	"atilde": "ã",
	"auml":   "ä",
	"aring":  "å",
	"aelig":  "æ",
	"ccedil": "ç",
	"egrave": "è",
	"eacute": "é",
	"ecirc":  "ê",
	"euml":   "ë",
	"igrave": "ì",
	"iacute": "í",
	"icirc":  "î",
	"iuml":   "ï",
	"eth":    "ð",
	"ntilde": "ñ",
	"ograve": "ò",
	"oacute": "ó",
	"ocirc":  "ô",
	"otilde": "õ",
	"ouml":   "ö",
	"divide": "÷",
	"oslash": "ø",
	"ugrave": "ù",
	"uacute": "ú",
	"ucirc":  "û",
	"uuml":   "ü",
	"yacute": "ý",
	"thorn":  "þ",
	"yuml":   "ÿ",

	// Typographic
	"OElig":  "Œ",
	"oelig":  "œ",
	"Scaron": "Š",
	"scaron": "š",
	"Yuml":   "Ÿ",
	"fnof":   "ƒ",
	"circ":   "ˆ",
	"tilde":  "˜",
	"ensp":   " ",
	"emsp":   " ",
	"thinsp": " ",
	"zwnj":   "‌",
	"zwj":    "‍",
	"lrm":    "‎",
	"rlm":    "‏",
	"ndash":  "–",
	"mdash":  "—",
	"lsquo":  "‘",
	"rsquo":  "’",
	"sbquo":  "‚",
	"ldquo":  "“",
	"rdquo":  "”",
	"bdquo":  "„",
	"dagger": "†",
	"Dagger": "‡",
	"bull":   "•",
	"hellip": "…",
	"permil": "‰",
	"prime":  "′",
	"Prime":  "″",
	"lsaquo": "‹",
	"rsaquo": "›",
	"oline":  "‾",
	"frasl":  "⁄",
	"euro":   "€",
	"trade":  "™",

	// Arrows and math
	"larr":  "←",
	"uarr":  "↑",
	"rarr":  "→",
	"darr":  "↓",
	"harr":  "↔",
	"minus": "−",
	"lowast": "∗",
	"radic": "√",
	"infin": "∞",
	"cap":   "∩",
	"cup":   "∪",
	"int":   "∫",
	"asymp": "≈",
	"ne":    "≠",
	"equiv": "≡",
	"le":    "≤",
	"ge":    "≥",
}
