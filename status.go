package mongrel2

import "net/http"

// statusText holds the handful of reason phrases Mongrel2's own sample error
// pages use that `net/http.StatusText` either omits or that predate it being
// added to the standard library's table, so reason-phrase lookups never fall
// back to "".
var statusText = map[int]string{
	431: "Request Header Fields Too Large",
	451: "Unavailable For Legal Reasons",
}

// reasonPhrase returns the canonical reason phrase for status. Unknown codes
// return "Unknown".
func reasonPhrase(status int) string {
	if t := http.StatusText(status); t != "" {
		return t
	}

	if t, ok := statusText[status]; ok {
		return t
	}

	return "Unknown"
}
